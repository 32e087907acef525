package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aimorme/dateplan-back/internal/domain"
)

// MemoryRecordStore keeps job records in process memory. It is the default
// backend for local development and tests.
type MemoryRecordStore struct {
	retention time.Duration

	mu      sync.RWMutex
	entries map[string]*recordEntry
	active  map[string]string
}

type recordEntry struct {
	mu     sync.Mutex
	record *domain.JobRecord
}

func NewMemoryRecordStore(retention time.Duration) *MemoryRecordStore {
	if retention <= 0 {
		retention = DefaultRetentionWindow
	}
	return &MemoryRecordStore{
		retention: retention,
		entries:   make(map[string]*recordEntry),
		active:    make(map[string]string),
	}
}

func (s *MemoryRecordStore) CreateIfIdle(_ context.Context, record *domain.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if activeID, ok := s.active[record.ClientKey]; ok {
		if entry, exists := s.entries[activeID]; exists {
			entry.mu.Lock()
			terminal := entry.record.Terminal()
			entry.mu.Unlock()
			if !terminal {
				return ErrClientBusy
			}
		}
		delete(s.active, record.ClientKey)
	}

	s.entries[record.ID] = &recordEntry{record: cloneRecord(record)}
	s.active[record.ClientKey] = record.ID
	return nil
}

func (s *MemoryRecordStore) Get(_ context.Context, id string) (*domain.JobRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.record.Status == domain.JobStatusExpired {
		return nil, ErrExpired
	}
	return cloneRecord(entry.record), nil
}

func (s *MemoryRecordStore) Update(
	_ context.Context,
	id string,
	mutate func(*domain.JobRecord) error,
) (*domain.JobRecord, error) {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}

	entry.mu.Lock()
	updated := cloneRecord(entry.record)
	if err := mutate(updated); err != nil {
		entry.mu.Unlock()
		return nil, err
	}
	entry.record = updated
	result := cloneRecord(updated)
	terminal := updated.Terminal()
	clientKey := updated.ClientKey
	entry.mu.Unlock()

	if terminal {
		s.releaseClient(clientKey, id)
	}
	return result, nil
}

func (s *MemoryRecordStore) MarkExpired(_ context.Context, id string) error {
	s.mu.RLock()
	entry, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}

	entry.mu.Lock()
	entry.record.Status = domain.JobStatusExpired
	clientKey := entry.record.ClientKey
	entry.mu.Unlock()

	s.releaseClient(clientKey, id)
	return nil
}

func (s *MemoryRecordStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.RLock()
	eligible := make([]string, 0)
	stale := make([]string, 0)
	for id, entry := range s.entries {
		entry.mu.Lock()
		record := entry.record
		switch record.Status {
		case domain.JobStatusComplete, domain.JobStatusError:
			if record.CompletedAt != nil && !now.Before(record.CompletedAt.Add(s.retention)) {
				eligible = append(eligible, id)
			}
		case domain.JobStatusExpired:
			if record.CompletedAt != nil && !now.Before(record.CompletedAt.Add(2*s.retention)) {
				stale = append(stale, id)
			}
		}
		entry.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, id := range eligible {
		if err := s.MarkExpired(ctx, id); err != nil && err != ErrNotFound {
			return 0, err
		}
	}

	// Long-expired records are dropped entirely to keep memory bounded.
	if len(stale) > 0 {
		s.mu.Lock()
		for _, id := range stale {
			delete(s.entries, id)
		}
		s.mu.Unlock()
	}

	return len(eligible), nil
}

// releaseClient frees the single-flight slot. Caller must not hold s.mu.
func (s *MemoryRecordStore) releaseClient(clientKey, id string) {
	s.mu.Lock()
	if s.active[clientKey] == id {
		delete(s.active, clientKey)
	}
	s.mu.Unlock()
}

func cloneRecord(record *domain.JobRecord) *domain.JobRecord {
	if record == nil {
		return nil
	}
	clone := *record
	clone.Stages = make([]domain.StageState, len(record.Stages))
	copy(clone.Stages, record.Stages)
	for i := range clone.Stages {
		clone.Stages[i].Output = append(json.RawMessage(nil), record.Stages[i].Output...)
	}
	clone.PartialResult = append(json.RawMessage(nil), record.PartialResult...)
	clone.FinalResult = append(json.RawMessage(nil), record.FinalResult...)
	clone.Previews = append([]string(nil), record.Previews...)
	if record.StartedAt != nil {
		started := *record.StartedAt
		clone.StartedAt = &started
	}
	if record.CompletedAt != nil {
		completed := *record.CompletedAt
		clone.CompletedAt = &completed
	}
	if record.ErrorDetail != nil {
		detail := *record.ErrorDetail
		clone.ErrorDetail = &detail
	}
	return &clone
}
