// Package memory is an in-process backend with the same semantics as the
// postgresql repositories. It backs tests and single instance local runs.
package memory

import (
	"slices"
	"sync"
	"time"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

type uploadEntry struct {
	upload *domain.Upload
	seq    int64
}

type rowSet struct {
	byLine map[int]*domain.RawImportRow
	lines  []int
}

func (s *rowSet) ordered() []*domain.RawImportRow {
	rows := make([]*domain.RawImportRow, 0, len(s.lines))
	for _, n := range s.lines {
		rows = append(rows, s.byLine[n])
	}

	return rows
}

// Store holds uploads, raw import rows and structured records.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	uploads   map[string]*uploadEntry
	uploadSeq int64

	rows     map[string]*rowSet
	rowsByID map[int64]*domain.RawImportRow
	rowSeq   int64

	records   map[string]map[int]*domain.StructuredRecord
	recordSeq int64

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		uploads:  make(map[string]*uploadEntry),
		rows:     make(map[string]*rowSet),
		rowsByID: make(map[int64]*domain.RawImportRow),
		records:  make(map[string]map[int]*domain.StructuredRecord),
		now:      time.Now,
	}
}

// backlogged reports whether rows of the upload may be claimed for encoding.
func (s *Store) backlogged(uploadID string) bool {
	e, ok := s.uploads[uploadID]
	if !ok || e.upload.DeletedAt != nil {
		return false
	}

	return e.upload.Phase == domain.PhaseIdentified || e.upload.Phase == domain.PhaseEncoding
}

func (s *Store) orderedUploads() []*uploadEntry {
	entries := make([]*uploadEntry, 0, len(s.uploads))
	for _, e := range s.uploads {
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b *uploadEntry) int {
		return int(a.seq - b.seq)
	})

	return entries
}

func lineFilter(lineNumbers []int) func(int) bool {
	if len(lineNumbers) == 0 {
		return func(int) bool { return true }
	}

	set := make(map[int]struct{}, len(lineNumbers))
	for _, n := range lineNumbers {
		set[n] = struct{}{}
	}

	return func(n int) bool {
		_, ok := set[n]
		return ok
	}
}
