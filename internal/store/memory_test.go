package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"cert-verification/internal/model"
	pkgerrors "cert-verification/pkg/errors"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	if err := s.Create(ctx, "job-1", now); err != nil {
		t.Fatalf("Create: %v", err)
	}

	record, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.State != model.JobStatePending {
		t.Errorf("state = %q, want pending", record.State)
	}

	if err := s.MarkProcessing(ctx, "job-1"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	result := model.ClassificationResult{Status: model.CertStatusValid}
	if err := s.Complete(ctx, "job-1", result); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	record, err = s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if record.State != model.JobStateCompleted {
		t.Errorf("state = %q, want completed", record.State)
	}
	if record.Result == nil || record.Result.Status != model.CertStatusValid {
		t.Errorf("result = %+v, want valid classification", record.Result)
	}
	if record.Error != "" {
		t.Errorf("error = %q, want empty on completed job", record.Error)
	}
}

func TestMemoryStoreFail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "job-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.Fail(ctx, "job-1", "stage recognition: engine crashed"); err != nil {
		t.Fatalf("Fail: %v", err)
	}

	record, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if record.State != model.JobStateFailed {
		t.Errorf("state = %q, want failed", record.State)
	}
	if record.Result != nil {
		t.Error("failed job must not carry a result")
	}
	if record.Error == "" {
		t.Error("failed job must carry the error message")
	}
}

func TestMemoryStoreDuplicateCreate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "job-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.Create(ctx, "job-1", time.Now()); !errors.Is(err, pkgerrors.ErrJobExists) {
		t.Errorf("err = %v, want ErrJobExists", err)
	}
}

func TestMemoryStoreUnknownJob(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, pkgerrors.ErrJobNotFound) {
		t.Errorf("Get err = %v, want ErrJobNotFound", err)
	}
	if _, err := s.Await(context.Background(), "nope"); !errors.Is(err, pkgerrors.ErrJobNotFound) {
		t.Errorf("Await err = %v, want ErrJobNotFound", err)
	}
}

// Terminal states are terminal: a second outcome for the same job is
// rejected rather than overwriting the first.
func TestMemoryStoreTerminalIsFinal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "job-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, "job-1", model.ClassificationResult{Status: model.CertStatusInvalid}); err != nil {
		t.Fatal(err)
	}

	if err := s.Fail(ctx, "job-1", "late failure"); !errors.Is(err, pkgerrors.ErrJobTerminal) {
		t.Errorf("Fail err = %v, want ErrJobTerminal", err)
	}
	if err := s.Complete(ctx, "job-1", model.ClassificationResult{}); !errors.Is(err, pkgerrors.ErrJobTerminal) {
		t.Errorf("Complete err = %v, want ErrJobTerminal", err)
	}
}

// A redelivered queue payload must not drag a finished job back to
// processing and wipe its outcome from pollers.
func TestMemoryStoreMarkProcessingAfterTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "job-1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkProcessing(ctx, "job-1"); err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, "job-1", model.ClassificationResult{Status: model.CertStatusValid}); err != nil {
		t.Fatal(err)
	}

	if err := s.MarkProcessing(ctx, "job-1"); !errors.Is(err, pkgerrors.ErrJobTerminal) {
		t.Errorf("MarkProcessing err = %v, want ErrJobTerminal", err)
	}

	record, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if record.State != model.JobStateCompleted {
		t.Errorf("state = %q, want completed to survive redelivery", record.State)
	}
	if record.Result == nil {
		t.Error("result must survive redelivery")
	}
}

func TestMemoryStoreAwait(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Create(ctx, "job-1", time.Now()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.MarkProcessing(ctx, "job-1")
		s.Complete(ctx, "job-1", model.ClassificationResult{Status: model.CertStatusValid})
	}()

	record, err := s.Await(ctx, "job-1")
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if !record.State.Terminal() {
		t.Errorf("Await returned non-terminal state %q", record.State)
	}
}

func TestMemoryStoreAwaitCancellation(t *testing.T) {
	s := NewMemoryStore()
	if err := s.Create(context.Background(), "job-1", time.Now()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := s.Await(ctx, "job-1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await err = %v, want deadline exceeded", err)
	}
}
