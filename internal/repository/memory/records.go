package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// SaveRecords stores records and assigns their ids. A second record for the
// same upload line is rejected.
func (s *Store) SaveRecords(ctx context.Context, records []*domain.StructuredRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for _, rec := range records {
		byLine, ok := s.records[rec.UploadID]
		if !ok {
			byLine = make(map[int]*domain.StructuredRecord)
			s.records[rec.UploadID] = byLine
		}

		if _, exists := byLine[rec.LineNumber]; exists {
			return fmt.Errorf("record for upload %s line %d already exists", rec.UploadID, rec.LineNumber)
		}

		s.recordSeq++
		rec.ID = s.recordSeq
		rec.CreatedAt = now

		c := *rec
		c.Fields = maps.Clone(rec.Fields)
		byLine[rec.LineNumber] = &c

		line := rec.LineNumber
		onRollback(ctx, func() { delete(byLine, line) })
	}

	return nil
}

func (s *Store) DeleteRecords(ctx context.Context, uploadID string, lineNumbers []int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLine, ok := s.records[uploadID]
	if !ok {
		return 0, nil
	}

	match := lineFilter(lineNumbers)
	deleted := 0

	for line, rec := range byLine {
		if !match(line) {
			continue
		}

		delete(byLine, line)
		onRollback(ctx, func() { byLine[line] = rec })
		deleted++
	}

	return deleted, nil
}

func (s *Store) Records(
	ctx context.Context,
	uploadID string,
	limit, offset uint64,
) ([]*domain.StructuredRecord, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byLine := s.records[uploadID]
	lines := slices.Sorted(maps.Keys(byLine))
	total := len(lines)

	if offset >= uint64(total) {
		return []*domain.StructuredRecord{}, total, nil
	}

	end := uint64(total)
	if limit > 0 {
		end = min(end, offset+limit)
	}

	records := make([]*domain.StructuredRecord, 0, end-offset)
	for _, line := range lines[offset:end] {
		c := *byLine[line]
		records = append(records, &c)
	}

	return records, total, nil
}
