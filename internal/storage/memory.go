package storage

import (
	"sync"

	"dexEngine/internal/model"
)

// MemoryStorage keeps records in memory.
type MemoryStorage struct {
	mu     sync.Mutex
	events []model.EventRecord
	errors []model.RequestError
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (s *MemoryStorage) PutEventBatch(records []model.EventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, records...)
	return nil
}

func (s *MemoryStorage) PutRequestErrors(errs []model.RequestError) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, errs...)
	return nil
}

// Events returns a copy of the stored event records.
func (s *MemoryStorage) Events() []model.EventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.EventRecord(nil), s.events...)
}

// Errors returns a copy of the stored request errors.
func (s *MemoryStorage) Errors() []model.RequestError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.RequestError(nil), s.errors...)
}
