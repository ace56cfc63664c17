package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// ContentKey is the raw content store key of an upload.
func ContentKey(uploadID string) string {
	return "tddf/" + uploadID
}

// Checksum is the hex xxhash64 digest of raw content.
func Checksum(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// Ingestor persists raw file bytes for uploads.
type Ingestor struct {
	log      *slog.Logger
	machine  *StateMachine
	uploads  UploadStore
	contents ContentStore
	maxSize  int64
	policy   RetryPolicy
}

func NewIngestor(
	log *slog.Logger,
	machine *StateMachine,
	uploads UploadStore,
	contents ContentStore,
	maxSize int64,
	policy RetryPolicy,
) *Ingestor {
	return &Ingestor{
		log:      log,
		machine:  machine,
		uploads:  uploads,
		contents: contents,
		maxSize:  maxSize,
		policy:   policy,
	}
}

// StoreContent stores the whole file and moves the upload to uploaded.
func (i *Ingestor) StoreContent(ctx context.Context, uploadID string, data []byte) (*domain.Upload, error) {
	if err := i.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	u, err := i.beginUploading(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	key := ContentKey(u.ID)

	err = retry(ctx, i.log, i.policy, "put content", func(ctx context.Context) error {
		return i.contents.Put(ctx, key, data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store content of upload %s: %w", u.ID, err)
	}

	return i.finishUploading(ctx, u.ID, key, data)
}

// StoreChunk stores one chunk of a chunked upload. When the last missing chunk
// arrives the content is assembled and the upload moves to uploaded. The bool
// result reports whether that happened.
func (i *Ingestor) StoreChunk(
	ctx context.Context,
	uploadID string,
	index, total int,
	data []byte,
) (*domain.Upload, bool, error) {
	if total <= 0 {
		return nil, false, domain.NewValidationError("total_chunks", "must be positive")
	}
	if index < 0 || index >= total {
		return nil, false, domain.NewValidationError("chunk_index", fmt.Sprintf("must be within [0;%d)", total))
	}
	if err := i.checkSize(int64(len(data))); err != nil {
		return nil, false, err
	}

	u, err := i.beginUploading(ctx, uploadID)
	if err != nil {
		return nil, false, err
	}

	key := ContentKey(u.ID)

	var stored int
	err = retry(ctx, i.log, i.policy, "put chunk", func(ctx context.Context) error {
		if err := i.contents.PutChunk(ctx, key, index, data); err != nil {
			return err
		}

		n, err := i.contents.ChunkCount(ctx, key)
		stored = n
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to store chunk %d of upload %s: %w", index, u.ID, err)
	}

	i.log.DebugContext(ctx, "chunk stored",
		slog.String("upload_id", u.ID),
		slog.Int("chunk_index", index),
		slog.Int("chunks_stored", stored),
		slog.Int("total_chunks", total),
	)

	if stored < total {
		return u, false, nil
	}

	var content []byte
	err = retry(ctx, i.log, i.policy, "assemble chunks", func(ctx context.Context) error {
		data, err := i.contents.Assemble(ctx, key, total)
		content = data
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to assemble upload %s: %w", u.ID, err)
	}

	if err := i.checkSize(int64(len(content))); err != nil {
		return nil, false, err
	}

	u, err = i.finishUploading(ctx, u.ID, key, content)
	if err != nil {
		return nil, false, err
	}

	return u, true, nil
}

func (i *Ingestor) checkSize(size int64) error {
	if size == 0 {
		return domain.NewValidationError("content", "must not be empty")
	}
	if i.maxSize > 0 && size > i.maxSize {
		return domain.NewValidationError("content", fmt.Sprintf("%d bytes exceeds the limit of %d", size, i.maxSize))
	}

	return nil
}

func (i *Ingestor) beginUploading(ctx context.Context, uploadID string) (*domain.Upload, error) {
	u, err := i.machine.Upload(ctx, uploadID)
	if err != nil {
		return nil, err
	}

	switch u.Phase {
	case domain.PhaseStarted:
		return i.machine.AdvancePhase(ctx, uploadID, domain.PhaseChange{To: domain.PhaseUploading})
	case domain.PhaseUploading:
		return u, nil
	default:
		return nil, &domain.IllegalTransitionError{UploadID: uploadID, From: u.Phase, To: domain.PhaseUploading}
	}
}

func (i *Ingestor) finishUploading(ctx context.Context, uploadID, key string, data []byte) (*domain.Upload, error) {
	checksum := Checksum(data)

	dup, err := i.uploads.UploadByChecksum(ctx, checksum)
	switch {
	case err == nil && dup.ID != uploadID:
		reason := "duplicate of " + dup.ID
		if _, err := i.machine.MarkFailed(ctx, uploadID, reason); err != nil {
			return nil, err
		}

		i.log.InfoContext(ctx, "duplicate upload rejected",
			slog.String("upload_id", uploadID),
			slog.String("duplicate_of", dup.ID),
		)

		return nil, fmt.Errorf("%w: upload %s matches %s", domain.ErrDuplicateUpload, uploadID, dup.ID)

	case err != nil && !errors.Is(err, domain.ErrUploadNotFound):
		return nil, fmt.Errorf("failed to check duplicates of upload %s: %w", uploadID, err)
	}

	u, err := i.machine.AdvancePhase(ctx, uploadID, domain.PhaseChange{
		To: domain.PhaseUploaded,
		Content: &domain.ContentInfo{
			Key:      key,
			Size:     int64(len(data)),
			Checksum: checksum,
		},
	})
	if err != nil {
		return nil, err
	}

	i.log.InfoContext(ctx, "upload content stored",
		slog.String("upload_id", u.ID),
		slog.Int64("byte_size", u.ByteSize),
		slog.String("checksum", checksum),
	)

	return u, nil
}
