package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cert-verification/internal/config"
	"cert-verification/internal/extract"
	"cert-verification/internal/logger"
	"cert-verification/internal/model"
	"cert-verification/internal/ocr"
	"cert-verification/internal/storage"
	"cert-verification/internal/store"
	pkgerrors "cert-verification/pkg/errors"
)

// contentRasterizer copies the document bytes into the page image, and
// fails for documents marked unreadable. Together with echoRecognizer it
// makes the recognized text equal the uploaded document body.
type contentRasterizer struct{}

func (contentRasterizer) Rasterize(ctx context.Context, sourcePath, workDir string) (string, error) {
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return "", err
	}
	if bytes.Contains(data, []byte("unreadable")) {
		return "", fmt.Errorf("%w: corrupt document", pkgerrors.ErrConversion)
	}
	imagePath := filepath.Join(workDir, "page.png")
	if err := os.WriteFile(imagePath, data, 0o644); err != nil {
		return "", err
	}
	return imagePath, nil
}

type echoRecognizer struct{}

func (echoRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type staticLookup struct {
	name, score, identifier string
}

func (l staticLookup) FindExact(ctx context.Context, name, score, identifier string) (bool, error) {
	return name == l.name && score == l.score && identifier == l.identifier, nil
}

func (l staticLookup) FindByIdentifier(ctx context.Context, identifier string) (bool, error) {
	return identifier == l.identifier, nil
}

func newTestWorker(t *testing.T) (*VerifyWorker, *store.MemoryStore, storage.Storage) {
	t.Helper()

	cfg := &config.Config{}
	cfg.OCR.ScratchDir = t.TempDir()
	cfg.Workers.Verify.Count = 2
	cfg.Workers.Verify.JobTimeout = 5 * time.Second

	blobs, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	results := store.NewMemoryStore()

	w := &VerifyWorker{
		cfg:       cfg,
		results:   results,
		blobs:     blobs,
		adapter:   ocr.NewAdapter(cfg, contentRasterizer{}, echoRecognizer{}),
		extractor: extract.NewExtractor(),
		lookup:    staticLookup{name: "Jane Doe", score: "8.5", identifier: "PRN100"},
		log:       logger.Get(),
	}
	return w, results, blobs
}

func submitJob(t *testing.T, blobs storage.Storage, results *store.MemoryStore, jobID, body string) model.VerificationJob {
	t.Helper()
	ctx := context.Background()

	key := "uploads/" + jobID + ".pdf"
	if err := blobs.Upload(ctx, key, bytes.NewReader([]byte(body))); err != nil {
		t.Fatal(err)
	}
	if err := results.Create(ctx, jobID, time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	return model.VerificationJob{
		JobID:       jobID,
		SourcePath:  key,
		ContentType: "application/pdf",
		EnqueuedAt:  time.Now().UTC(),
	}
}

const goodDocument = "Name: Jane Doe Marks: 8.5\nThird Semester SGPA: 8.5\nPerm Reg No(PRN): PRN100"

func TestProcessJobCompletes(t *testing.T) {
	w, results, blobs := newTestWorker(t)
	job := submitJob(t, blobs, results, "job-1", goodDocument)

	if err := w.processJob(context.Background(), job); err != nil {
		t.Fatalf("processJob: %v", err)
	}

	record, err := results.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if record.State != model.JobStateCompleted {
		t.Fatalf("state = %q, want completed (error: %s)", record.State, record.Error)
	}
	if record.Result.Status != model.CertStatusValid {
		t.Errorf("status = %q, want valid", record.Result.Status)
	}
	if record.Result.Fields.Name == nil || *record.Result.Fields.Name != "Jane Doe" {
		t.Errorf("extracted name = %v, want Jane Doe", record.Result.Fields.Name)
	}

	exists, err := blobs.Exists(context.Background(), job.SourcePath)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("source object should be deleted after processing")
	}
}

func TestProcessJobTamperedDocument(t *testing.T) {
	w, results, blobs := newTestWorker(t)
	tampered := "Name: John Smith Marks: 9.9\nThird Semester SGPA: 9.9\nPerm Reg No(PRN): PRN100"
	job := submitJob(t, blobs, results, "job-1", tampered)

	if err := w.processJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}

	record, _ := results.Get(context.Background(), "job-1")
	if record.Result == nil || record.Result.Status != model.CertStatusSuspicious {
		t.Fatalf("result = %+v, want suspicious", record.Result)
	}
}

// Redelivering a finished job is a no-op, not an error: the worker drops
// the payload and the recorded outcome stays intact.
func TestProcessJobRedelivery(t *testing.T) {
	w, results, blobs := newTestWorker(t)
	job := submitJob(t, blobs, results, "job-1", goodDocument)

	if err := w.processJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	if err := w.processJob(context.Background(), job); err != nil {
		t.Fatalf("redelivered job should be dropped cleanly, got %v", err)
	}

	record, err := results.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if record.State != model.JobStateCompleted {
		t.Errorf("state = %q, want completed after redelivery", record.State)
	}
	if record.Result == nil || record.Result.Status != model.CertStatusValid {
		t.Errorf("result = %+v, want original valid outcome", record.Result)
	}
}

// One unreadable document in a batch fails alone; the documents around it
// still complete, and every job's source object is removed either way.
func TestBatchFailureIsolation(t *testing.T) {
	w, results, blobs := newTestWorker(t)

	jobs := []model.VerificationJob{
		submitJob(t, blobs, results, "job-1", goodDocument),
		submitJob(t, blobs, results, "job-2", "unreadable"),
		submitJob(t, blobs, results, "job-3", goodDocument),
	}

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job model.VerificationJob) {
			defer wg.Done()
			if err := w.processJob(context.Background(), job); err != nil {
				t.Errorf("processJob(%s): %v", job.JobID, err)
			}
		}(job)
	}
	wg.Wait()

	wantStates := map[string]model.JobState{
		"job-1": model.JobStateCompleted,
		"job-2": model.JobStateFailed,
		"job-3": model.JobStateCompleted,
	}
	for jobID, want := range wantStates {
		record, err := results.Get(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Get(%s): %v", jobID, err)
		}
		if record.State != want {
			t.Errorf("%s state = %q, want %q", jobID, record.State, want)
		}
	}

	failed, _ := results.Get(context.Background(), "job-2")
	if failed.Error == "" {
		t.Error("failed job must carry the error message")
	}

	for _, job := range jobs {
		exists, err := blobs.Exists(context.Background(), job.SourcePath)
		if err != nil {
			t.Fatal(err)
		}
		if exists {
			t.Errorf("source object %s not deleted", job.SourcePath)
		}
	}
}

func TestProcessJobScratchLeftClean(t *testing.T) {
	w, results, blobs := newTestWorker(t)

	good := submitJob(t, blobs, results, "job-1", goodDocument)
	bad := submitJob(t, blobs, results, "job-2", "unreadable")

	if err := w.processJob(context.Background(), good); err != nil {
		t.Fatal(err)
	}
	if err := w.processJob(context.Background(), bad); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(w.cfg.OCR.ScratchDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch dir not empty after processing: %d entries", len(entries))
	}
}
