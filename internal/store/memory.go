package store

import (
	"context"
	"sync"
	"time"

	"cert-verification/internal/model"
	pkgerrors "cert-verification/pkg/errors"
)

// MemoryStore is an in-process ResultStore. Await callers are woken by a
// per-job channel closed on the terminal write, so nothing busy-polls.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*model.JobRecord
	done    map[string]chan struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*model.JobRecord),
		done:    make(map[string]chan struct{}),
	}
}

func (s *MemoryStore) Create(ctx context.Context, jobID string, enqueuedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[jobID]; exists {
		return pkgerrors.ErrJobExists
	}
	s.records[jobID] = &model.JobRecord{
		JobID:      jobID,
		State:      model.JobStatePending,
		EnqueuedAt: enqueuedAt,
		UpdatedAt:  enqueuedAt,
	}
	s.done[jobID] = make(chan struct{})
	return nil
}

func (s *MemoryStore) MarkProcessing(ctx context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[jobID]
	if !exists {
		return pkgerrors.ErrJobNotFound
	}
	// A redelivered payload must not drag a finished job back to processing.
	if record.State.Terminal() {
		return pkgerrors.ErrJobTerminal
	}
	record.State = model.JobStateProcessing
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) Complete(ctx context.Context, jobID string, result model.ClassificationResult) error {
	return s.finish(jobID, func(record *model.JobRecord) {
		record.State = model.JobStateCompleted
		record.Result = &result
	})
}

func (s *MemoryStore) Fail(ctx context.Context, jobID string, errMsg string) error {
	return s.finish(jobID, func(record *model.JobRecord) {
		record.State = model.JobStateFailed
		record.Error = errMsg
	})
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (*model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[jobID]
	if !exists {
		return nil, pkgerrors.ErrJobNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *MemoryStore) Await(ctx context.Context, jobID string) (*model.JobRecord, error) {
	s.mu.RLock()
	ch, exists := s.done[jobID]
	s.mu.RUnlock()
	if !exists {
		return nil, pkgerrors.ErrJobNotFound
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-ch:
		return s.Get(ctx, jobID)
	}
}

func (s *MemoryStore) finish(jobID string, mutate func(*model.JobRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.records[jobID]
	if !exists {
		return pkgerrors.ErrJobNotFound
	}
	if record.State.Terminal() {
		return pkgerrors.ErrJobTerminal
	}
	mutate(record)
	record.UpdatedAt = time.Now().UTC()
	close(s.done[jobID])
	return nil
}
