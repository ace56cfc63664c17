package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

const cancelledReason = "encoding cancelled"

// StateMachine owns upload phase transitions. Every write is conditional on
// the phase it was computed from, so concurrent transitions of one upload
// cannot both succeed.
type StateMachine struct {
	log      *slog.Logger
	uploads  UploadStore
	rows     RowQueue
	contents ContentStore
	events   EventPublisher
	now      func() time.Time
}

func NewStateMachine(
	log *slog.Logger,
	uploads UploadStore,
	rows RowQueue,
	contents ContentStore,
	events EventPublisher,
) *StateMachine {
	return &StateMachine{
		log:      log,
		uploads:  uploads,
		rows:     rows,
		contents: contents,
		events:   events,
		now:      time.Now,
	}
}

func (m *StateMachine) CreateUpload(ctx context.Context, filename, fileType, sessionID string) (*domain.Upload, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, domain.NewValidationError("filename", "must not be empty")
	}

	ft, err := domain.ParseFileType(fileType)
	if err != nil {
		return nil, err
	}

	now := m.now()
	u := &domain.Upload{
		ID:        uuid.NewString(),
		Filename:  filename,
		FileType:  ft,
		SessionID: sessionID,
		Phase:     domain.PhaseStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.uploads.CreateUpload(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to create upload: %w", err)
	}

	m.log.InfoContext(ctx, "upload created",
		slog.String("upload_id", u.ID),
		slog.String("filename", u.Filename),
		slog.String("file_type", string(u.FileType)),
	)

	m.publish(ctx, domain.Event{Type: domain.EventPhaseChanged, At: now, UploadID: u.ID, To: u.Phase})

	return u, nil
}

func (m *StateMachine) Upload(ctx context.Context, id string) (*domain.Upload, error) {
	u, err := m.uploads.Upload(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload %s: %w", id, err)
	}

	return u, nil
}

// AdvancePhase moves the upload to change.To if it is a legal successor of the
// current phase and writes the payload with it.
func (m *StateMachine) AdvancePhase(ctx context.Context, id string, change domain.PhaseChange) (*domain.Upload, error) {
	if err := validatePayload(change); err != nil {
		return nil, err
	}

	u, err := m.Upload(ctx, id)
	if err != nil {
		return nil, err
	}

	if !u.Phase.CanAdvanceTo(change.To) {
		return nil, &domain.IllegalTransitionError{UploadID: id, From: u.Phase, To: change.To}
	}

	if change.To == domain.PhaseIdentified {
		if err := m.checkLineCount(ctx, id, change.LineCount); err != nil {
			return nil, err
		}
	}

	change.Rewind, change.Cancelled, change.DeletedBy = false, false, ""

	return m.transition(ctx, u, change)
}

// checkLineCount requires identified to carry the number of raw rows actually
// stored for the upload.
func (m *StateMachine) checkLineCount(ctx context.Context, id string, lineCount *int) error {
	if lineCount == nil {
		return domain.NewValidationError("line_count", "is required for identified")
	}

	counts, err := m.rows.CountRows(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count rows of upload %s: %w", id, err)
	}

	if counts.Total != *lineCount {
		return domain.NewValidationError("line_count",
			fmt.Sprintf("%d does not match %d stored rows", *lineCount, counts.Total))
	}

	return nil
}

func validatePayload(change domain.PhaseChange) error {
	if !change.To.Valid() {
		return domain.NewValidationError("phase", fmt.Sprintf("unknown phase %q", change.To))
	}
	if change.Progress != nil && (*change.Progress < 0 || *change.Progress > 100) {
		return domain.NewValidationError("progress", "must be within [0;100]")
	}
	if change.LineCount != nil && *change.LineCount < 0 {
		return domain.NewValidationError("line_count", "must not be negative")
	}

	return nil
}

// RewindToLastKnownGood moves the upload to the latest phase whose timestamp
// is set and whose artifacts exist. It is the only backward transition.
func (m *StateMachine) RewindToLastKnownGood(ctx context.Context, id string) (*domain.Upload, error) {
	u, err := m.Upload(ctx, id)
	if err != nil {
		return nil, err
	}

	ev, err := m.evidence(ctx, u)
	if err != nil {
		return nil, err
	}

	target := u.LastKnownGood(ev)
	if target == u.Phase {
		m.log.DebugContext(ctx, "upload already at last known good phase",
			slog.String("upload_id", id),
			slog.String("phase", string(target)),
		)
		return u, nil
	}

	from := u.Phase

	u, err = m.transition(ctx, u, domain.PhaseChange{To: target, Rewind: true})
	if err != nil {
		return nil, err
	}

	m.log.InfoContext(ctx, "upload rewound",
		slog.String("upload_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
		slog.Bool("content_present", ev.ContentPresent),
		slog.Int("rows", ev.Rows.Total),
		slog.Int("open_rows", ev.Rows.Open()),
	)

	m.publish(ctx, domain.Event{
		Type:     domain.EventUploadRewound,
		At:       u.UpdatedAt,
		UploadID: id,
		From:     from,
		To:       target,
	})

	return u, nil
}

func (m *StateMachine) evidence(ctx context.Context, u *domain.Upload) (domain.Evidence, error) {
	var ev domain.Evidence

	if u.ContentKey != "" {
		present, err := m.contents.Exists(ctx, u.ContentKey)
		if err != nil {
			return ev, fmt.Errorf("failed to check content of upload %s: %w", u.ID, err)
		}
		ev.ContentPresent = present
	}

	counts, err := m.rows.CountRows(ctx, u.ID)
	if err != nil {
		return ev, fmt.Errorf("failed to count rows of upload %s: %w", u.ID, err)
	}
	ev.Rows = counts

	return ev, nil
}

// MarkFailed fails the upload from any non-terminal phase.
func (m *StateMachine) MarkFailed(ctx context.Context, id, reason string) (*domain.Upload, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "must not be empty")
	}

	u, err := m.Upload(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Phase.Terminal() {
		return nil, &domain.IllegalTransitionError{UploadID: id, From: u.Phase, To: domain.PhaseFailed}
	}

	return m.transition(ctx, u, domain.PhaseChange{To: domain.PhaseFailed, ErrorMessage: &reason})
}

// MarkCancelled fails an encoding upload and flags it as cancelled. Rows
// already processed keep their outcome.
func (m *StateMachine) MarkCancelled(ctx context.Context, id string) (*domain.Upload, error) {
	u, err := m.Upload(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Phase != domain.PhaseEncoding {
		return nil, &domain.IllegalTransitionError{UploadID: id, From: u.Phase, To: domain.PhaseFailed}
	}

	reason := cancelledReason

	return m.transition(ctx, u, domain.PhaseChange{
		To:           domain.PhaseFailed,
		ErrorMessage: &reason,
		Cancelled:    true,
	})
}

// SoftDelete tombstones a non-terminal upload. It disappears from every
// normal query but is kept for audit.
func (m *StateMachine) SoftDelete(ctx context.Context, id, deletedBy string) (*domain.Upload, error) {
	u, err := m.Upload(ctx, id)
	if err != nil {
		return nil, err
	}

	if u.Phase.Terminal() {
		return nil, &domain.IllegalTransitionError{UploadID: id, From: u.Phase, To: domain.PhaseDeleted}
	}

	if deletedBy == "" {
		deletedBy = "system"
	}

	return m.transition(ctx, u, domain.PhaseChange{To: domain.PhaseDeleted, DeletedBy: deletedBy})
}

func (m *StateMachine) transition(ctx context.Context, u *domain.Upload, change domain.PhaseChange) (*domain.Upload, error) {
	from := u.Phase
	change.At = m.now()

	next := *u
	change.Apply(&next)

	if err := m.uploads.UpdatePhase(ctx, &next, from); err != nil {
		return nil, fmt.Errorf("failed to move upload %s from %s to %s: %w", u.ID, from, change.To, err)
	}

	m.log.DebugContext(ctx, "upload phase changed",
		slog.String("upload_id", u.ID),
		slog.String("from", string(from)),
		slog.String("to", string(change.To)),
	)

	if !change.Rewind {
		event := domain.Event{Type: domain.EventPhaseChanged, At: change.At, UploadID: u.ID, From: from, To: change.To}
		if change.ErrorMessage != nil {
			event.Reason = *change.ErrorMessage
		}
		m.publish(ctx, event)
	}

	return &next, nil
}

func (m *StateMachine) publish(ctx context.Context, event domain.Event) {
	if m.events != nil {
		m.events.Publish(ctx, event)
	}
}
