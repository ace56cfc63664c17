package memory

import (
	"context"
	"slices"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// InsertRows adds rows whose (upload, line number) is not stored yet and
// returns how many were added.
func (s *Store) InsertRows(ctx context.Context, rows []*domain.RawImportRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := 0
	for _, row := range rows {
		set, ok := s.rows[row.UploadID]
		if !ok {
			set = &rowSet{byLine: make(map[int]*domain.RawImportRow)}
			s.rows[row.UploadID] = set
		}

		if _, exists := set.byLine[row.LineNumber]; exists {
			continue
		}

		s.rowSeq++
		r := *row
		r.ID = s.rowSeq
		row.ID = r.ID

		set.byLine[r.LineNumber] = &r
		i, _ := slices.BinarySearch(set.lines, r.LineNumber)
		set.lines = slices.Insert(set.lines, i, r.LineNumber)
		s.rowsByID[r.ID] = &r

		inserted++
	}

	return inserted, nil
}

func (s *Store) CountRows(ctx context.Context, uploadID string) (domain.RowCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts domain.RowCounts
	if set, ok := s.rows[uploadID]; ok {
		for _, r := range set.byLine {
			counts.Add(r.Status, 1)
		}
	}

	return counts, nil
}

// ClaimRows claims pending rows in line order. Only uploads in identified or
// encoding are claimable.
func (s *Store) ClaimRows(ctx context.Context, claim domain.Claim) ([]*domain.RawImportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rows[claim.UploadID]
	if !ok || claim.Limit <= 0 || !s.backlogged(claim.UploadID) {
		return nil, nil
	}

	match := lineFilter(claim.LineNumbers)
	at := claim.At
	token := claim.Token

	var claimed []*domain.RawImportRow
	for _, r := range set.ordered() {
		if r.Status != domain.RowStatusPending || !match(r.LineNumber) {
			continue
		}

		r.Status = domain.RowStatusClaimed
		r.ClaimToken = &token
		r.ClaimedAt = &at

		c := *r
		claimed = append(claimed, &c)

		if len(claimed) >= claim.Limit {
			break
		}
	}

	return claimed, nil
}

// CompleteRows writes outcomes for rows still claimed under token whose
// upload is still identified or encoding.
func (s *Store) CompleteRows(ctx context.Context, token string, outcomes []domain.RowOutcome) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	updated := 0

	for _, o := range outcomes {
		r, ok := s.rowsByID[o.RowID]
		if !ok || r.Status != domain.RowStatusClaimed || r.ClaimToken == nil || *r.ClaimToken != token {
			continue
		}
		if !s.backlogged(r.UploadID) {
			continue
		}

		prev := *r
		onRollback(ctx, func() { *r = prev })

		r.Status = o.Status
		r.Reason = o.Reason
		r.RecordID = o.RecordID
		r.ProcessedAt = &now
		r.ClaimToken = nil
		r.ClaimedAt = nil

		updated++
	}

	return updated, nil
}

func (s *Store) ReleaseClaims(ctx context.Context, token string) (int, error) {
	return s.release(func(r *domain.RawImportRow) bool {
		return r.ClaimToken != nil && *r.ClaimToken == token
	}), nil
}

func (s *Store) ReleaseStaleClaims(ctx context.Context, claimedBefore time.Time) (int, error) {
	return s.release(func(r *domain.RawImportRow) bool {
		return r.ClaimedAt != nil && r.ClaimedAt.Before(claimedBefore)
	}), nil
}

func (s *Store) release(match func(*domain.RawImportRow) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	released := 0
	for _, r := range s.rowsByID {
		if r.Status != domain.RowStatusClaimed || !match(r) {
			continue
		}

		r.Status = domain.RowStatusPending
		r.ClaimToken = nil
		r.ClaimedAt = nil
		released++
	}

	return released
}

// ResetRows returns final rows to pending. An empty lineNumbers resets every
// final row of the upload. Claimed rows are left alone.
func (s *Store) ResetRows(ctx context.Context, uploadID string, lineNumbers []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rows[uploadID]
	if !ok {
		return 0, nil
	}

	match := lineFilter(lineNumbers)
	reset := 0

	for _, r := range set.byLine {
		if !r.Status.Final() || !match(r.LineNumber) {
			continue
		}

		prev := *r
		onRollback(ctx, func() { *r = prev })

		r.Status = domain.RowStatusPending
		r.Reason = ""
		r.RecordID = nil
		r.ProcessedAt = nil
		reset++
	}

	return reset, nil
}

func (s *Store) PendingCount(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := 0
	for uploadID, set := range s.rows {
		if !s.backlogged(uploadID) {
			continue
		}

		for _, r := range set.byLine {
			if r.Status == domain.RowStatusPending {
				pending++
			}
		}
	}

	return pending, nil
}

// OldestPendingUpload returns the earliest created upload with backlog.
func (s *Store) OldestPendingUpload(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.orderedUploads() {
		id := e.upload.ID
		set, ok := s.rows[id]
		if !ok || !s.backlogged(id) {
			continue
		}

		for _, r := range set.byLine {
			if r.Status == domain.RowStatusPending {
				return id, true, nil
			}
		}
	}

	return "", false, nil
}

// Rows returns rows after line afterLine in line order.
func (s *Store) Rows(ctx context.Context, uploadID string, afterLine int, limit uint64) ([]*domain.RawImportRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.rows[uploadID]
	if !ok {
		return nil, nil
	}

	var rows []*domain.RawImportRow
	for _, r := range set.ordered() {
		if r.LineNumber <= afterLine {
			continue
		}

		c := *r
		rows = append(rows, &c)

		if limit > 0 && uint64(len(rows)) >= limit {
			break
		}
	}

	return rows, nil
}

func (s *Store) RecordTypeCounts(ctx context.Context, uploadID string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	if set, ok := s.rows[uploadID]; ok {
		for _, r := range set.byLine {
			counts[r.RecordType]++
		}
	}

	return counts, nil
}
