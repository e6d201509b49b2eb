package memory

import (
	"context"
	"sync"

	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/ports"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.RunRecord
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.RunRecord),
	}
}

// Save persists the run record in memory.
func (s *Store) Save(ctx context.Context, rec *domain.RunRecord) error {
	// Copy so the caller can't mutate stored spans through the pointer
	copied := copyRecord(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[rec.ID] = copied
	return nil
}

// Load retrieves a run record from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, ports.ErrRunNotFound
	}
	return copyRecord(rec), nil
}

// Delete removes a run record.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the IDs of all stored runs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

func copyRecord(rec *domain.RunRecord) *domain.RunRecord {
	copied := *rec
	copied.RunLog = make(domain.RunLog, len(rec.RunLog))
	for i, span := range rec.RunLog {
		span.Payload = make(map[string]any, len(rec.RunLog[i].Payload))
		for k, v := range rec.RunLog[i].Payload {
			span.Payload[k] = v
		}
		span.Logs = append([]domain.LogRecord(nil), rec.RunLog[i].Logs...)
		copied.RunLog[i] = span
	}
	return &copied
}
