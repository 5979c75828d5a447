package blockjack

import (
	"context"
	"sync"
	"time"
)

// Store persists records by key. Put must fail with ErrConflict when the
// stored version differs from rec.Version, and bump rec.Version on success.
type Store[C any] interface {
	Get(ctx context.Context, key string) (*Record[C], error)
	Put(ctx context.Context, rec *Record[C]) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps records in process memory.
type MemoryStore[C any] struct {
	mu      sync.RWMutex
	records map[string]*Record[C]
}

func NewMemoryStore[C any]() *MemoryStore[C] {
	return &MemoryStore[C]{records: make(map[string]*Record[C])}
}

func (s *MemoryStore[C]) Get(_ context.Context, key string) (*Record[C], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *MemoryStore[C]) Put(_ context.Context, rec *Record[C]) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.records[rec.Key]; ok {
		current = existing.Version
	}
	if current != rec.Version {
		return ErrConflict
	}

	rec.Version++
	rec.UpdatedAt = time.Now()
	s.records[rec.Key] = rec.Clone()
	return nil
}

func (s *MemoryStore[C]) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, key)
	return nil
}

// Len reports how many records are held.
func (s *MemoryStore[C]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
