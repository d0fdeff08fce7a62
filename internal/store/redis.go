package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cert-verification/internal/config"
	"cert-verification/internal/model"
	pkgerrors "cert-verification/pkg/errors"

	"github.com/go-redis/redis/v8"
)

const jobKeyPrefix = "verify:job:"

// RedisStore keeps job records as JSON values so the API and worker
// binaries share one view of job state.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, cfg *config.Config) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    cfg.Redis.ResultTTL,
	}
}

func jobKey(jobID string) string {
	return jobKeyPrefix + jobID
}

func (s *RedisStore) Create(ctx context.Context, jobID string, enqueuedAt time.Time) error {
	record := model.JobRecord{
		JobID:      jobID,
		State:      model.JobStatePending,
		EnqueuedAt: enqueuedAt,
		UpdatedAt:  enqueuedAt,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	ok, err := s.client.SetNX(ctx, jobKey(jobID), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to create job record: %w", err)
	}
	if !ok {
		return pkgerrors.ErrJobExists
	}
	return nil
}

func (s *RedisStore) MarkProcessing(ctx context.Context, jobID string) error {
	return s.update(ctx, jobID, func(record *model.JobRecord) error {
		if record.State.Terminal() {
			return pkgerrors.ErrJobTerminal
		}
		record.State = model.JobStateProcessing
		return nil
	})
}

func (s *RedisStore) Complete(ctx context.Context, jobID string, result model.ClassificationResult) error {
	return s.update(ctx, jobID, func(record *model.JobRecord) error {
		if record.State.Terminal() {
			return pkgerrors.ErrJobTerminal
		}
		record.State = model.JobStateCompleted
		record.Result = &result
		return nil
	})
}

func (s *RedisStore) Fail(ctx context.Context, jobID string, errMsg string) error {
	return s.update(ctx, jobID, func(record *model.JobRecord) error {
		if record.State.Terminal() {
			return pkgerrors.ErrJobTerminal
		}
		record.State = model.JobStateFailed
		record.Error = errMsg
		return nil
	})
}

func (s *RedisStore) Get(ctx context.Context, jobID string) (*model.JobRecord, error) {
	data, err := s.client.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, pkgerrors.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to read job record: %w", err)
	}

	var record model.JobRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job record: %w", err)
	}
	return &record, nil
}

// Await polls for a terminal state. Keyspace notifications would avoid the
// polling but require server-side config; a short ticker is good enough for
// the intake-side wait.
func (s *RedisStore) Await(ctx context.Context, jobID string) (*model.JobRecord, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		record, err := s.Get(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if record.State.Terminal() {
			return record, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// update rewrites the record under its key. Each job id is owned by exactly
// one worker at a time, so read-modify-write without a lock is race-free
// per key.
func (s *RedisStore) update(ctx context.Context, jobID string, mutate func(*model.JobRecord) error) error {
	record, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if err := mutate(record); err != nil {
		return err
	}
	record.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, jobKey(jobID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to update job record: %w", err)
	}
	return nil
}
