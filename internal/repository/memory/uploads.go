package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

func (s *Store) CreateUpload(ctx context.Context, upload *domain.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.uploads[upload.ID]; ok {
		return fmt.Errorf("upload %s already exists", upload.ID)
	}

	s.uploadSeq++
	u := *upload
	s.uploads[upload.ID] = &uploadEntry{upload: &u, seq: s.uploadSeq}

	return nil
}

func (s *Store) Upload(ctx context.Context, id string) (*domain.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.uploads[id]
	if !ok || e.upload.DeletedAt != nil {
		return nil, domain.ErrUploadNotFound
	}

	u := *e.upload
	return &u, nil
}

func (s *Store) UpdatePhase(ctx context.Context, upload *domain.Upload, from domain.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.uploads[upload.ID]
	if !ok || e.upload.DeletedAt != nil {
		return domain.ErrUploadNotFound
	}

	if e.upload.Phase != from {
		return domain.ErrPhaseConflict
	}

	prev := e.upload
	u := *upload
	e.upload = &u
	onRollback(ctx, func() { e.upload = prev })

	return nil
}

func (s *Store) Uploads(ctx context.Context, filter domain.UploadFilter) ([]*domain.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var uploads []*domain.Upload
	for _, e := range s.orderedUploads() {
		u := e.upload
		if u.DeletedAt != nil {
			continue
		}
		if len(filter.Phases) > 0 && !slices.Contains(filter.Phases, u.Phase) {
			continue
		}
		if filter.UpdatedUntil != nil && u.UpdatedAt.After(*filter.UpdatedUntil) {
			continue
		}

		c := *u
		uploads = append(uploads, &c)

		if filter.Limit > 0 && uint64(len(uploads)) >= filter.Limit {
			break
		}
	}

	return uploads, nil
}

func (s *Store) UploadByChecksum(ctx context.Context, checksum string) (*domain.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.orderedUploads() {
		u := e.upload
		if u.DeletedAt != nil || u.Phase == domain.PhaseFailed || u.Checksum != checksum {
			continue
		}

		c := *u
		return &c, nil
	}

	return nil, domain.ErrUploadNotFound
}

func (s *Store) CountUploads(ctx context.Context) (domain.UploadCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts domain.UploadCounts
	for _, e := range s.uploads {
		if e.upload.DeletedAt != nil {
			continue
		}

		switch e.upload.Phase {
		case domain.PhaseStarted, domain.PhaseUploading, domain.PhaseUploaded:
			counts.Pending++
		case domain.PhaseIdentified, domain.PhaseEncoding:
			counts.Processing++
		case domain.PhaseEncoded, domain.PhaseCompleted:
			counts.Completed++
		case domain.PhaseFailed:
			counts.Failed++
		}
	}

	return counts, nil
}
