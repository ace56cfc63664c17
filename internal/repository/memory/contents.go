package memory

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kurochkinivan/tddf_pipeline/internal/domain"
)

// ContentStore keeps raw file bytes and upload chunks in memory.
type ContentStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	chunks  map[string]map[int][]byte
}

func NewContentStore() *ContentStore {
	return &ContentStore{
		objects: make(map[string][]byte),
		chunks:  make(map[string]map[int][]byte),
	}
}

func (s *ContentStore) Put(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = slices.Clone(data)

	return nil
}

func (s *ContentStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.objects[key]
	if !ok {
		return nil, domain.ErrContentNotFound
	}

	return slices.Clone(data), nil
}

func (s *ContentStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.objects[key]
	return ok, nil
}

// Delete removes an object. Used to simulate lost content.
func (s *ContentStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
}

func (s *ContentStore) PutChunk(ctx context.Context, key string, index int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks, ok := s.chunks[key]
	if !ok {
		chunks = make(map[int][]byte)
		s.chunks[key] = chunks
	}
	chunks[index] = slices.Clone(data)

	return nil
}

func (s *ContentStore) ChunkCount(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.chunks[key]), nil
}

// Assemble joins chunks 0..total-1 into the object at key and drops them.
func (s *ContentStore) Assemble(ctx context.Context, key string, total int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chunks := s.chunks[key]

	var buf bytes.Buffer
	for i := range total {
		chunk, ok := chunks[i]
		if !ok {
			return nil, fmt.Errorf("chunk %d of %s is missing", i, key)
		}
		buf.Write(chunk)
	}

	data := buf.Bytes()
	s.objects[key] = data
	delete(s.chunks, key)

	return slices.Clone(data), nil
}
