package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cert-verification/internal/classify"
	"cert-verification/internal/config"
	"cert-verification/internal/extract"
	"cert-verification/internal/logger"
	"cert-verification/internal/model"
	"cert-verification/internal/ocr"
	"cert-verification/internal/queue"
	"cert-verification/internal/storage"
	"cert-verification/internal/store"
	pkgerrors "cert-verification/pkg/errors"

	"github.com/rs/zerolog"
)

// VerifyWorker consumes verification jobs and runs each through the
// pipeline: conversion -> recognition -> extraction -> classification.
// Stage order is fixed; a later stage never starts before the prior
// stage's result is available.
type VerifyWorker struct {
	cfg        *config.Config
	results    store.ResultStore
	blobs      storage.Storage
	adapter    *ocr.Adapter
	extractor  *extract.Extractor
	lookup     classify.RecordLookup
	consumer   *queue.Consumer
	workerPool *WorkerPool
	log        zerolog.Logger
}

func NewVerifyWorker(
	cfg *config.Config,
	results store.ResultStore,
	blobs storage.Storage,
	adapter *ocr.Adapter,
	lookup classify.RecordLookup,
	redisClient *queue.RedisClient,
) *VerifyWorker {
	return &VerifyWorker{
		cfg:        cfg,
		results:    results,
		blobs:      blobs,
		adapter:    adapter,
		extractor:  extract.NewExtractor(),
		lookup:     lookup,
		consumer:   queue.NewConsumer(redisClient, cfg),
		workerPool: NewWorkerPool(cfg.Workers.Verify.Count),
		log:        logger.Get(),
	}
}

func (w *VerifyWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting verification worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeVerificationQueue(ctx, w.handleMessage)
}

func (w *VerifyWorker) Stop() {
	w.log.Info().Msg("Stopping verification worker")
	w.workerPool.Stop()
}

func (w *VerifyWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.VerificationJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal verification job")
		return err
	}

	w.log.Info().Str("job_id", job.JobID).Str("source", job.SourcePath).Msg("Processing verification job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		return w.processJob(ctx, job)
	})
}

// processJob drives one document to a terminal state. Pipeline errors are
// recorded as a failed result and do not propagate: one bad document in a
// batch must not affect the others, and a failing job must not crash the
// worker.
func (w *VerifyWorker) processJob(ctx context.Context, job model.VerificationJob) error {
	log := w.log.With().Str("job_id", job.JobID).Logger()

	if err := w.results.MarkProcessing(ctx, job.JobID); err != nil {
		// A terminal record means this payload is a redelivery of a job
		// that already finished; drop it instead of reprocessing.
		if errors.Is(err, pkgerrors.ErrJobTerminal) {
			log.Warn().Msg("Skipping redelivered job, already terminal")
			return nil
		}
		log.Error().Err(err).Msg("Failed to mark job processing")
		return err
	}

	// Unbounded OCR calls are an operational risk; the deadline surfaces
	// as a failed state like any other stage error.
	jobCtx, cancel := context.WithTimeout(ctx, w.cfg.Workers.Verify.JobTimeout)
	defer cancel()

	result, err := w.runPipeline(jobCtx, job, log)
	if err != nil {
		log.Error().Err(err).Msg("Verification pipeline failed")
		if failErr := w.results.Fail(ctx, job.JobID, err.Error()); failErr != nil {
			log.Error().Err(failErr).Msg("Failed to record job failure")
			return failErr
		}
		return nil
	}

	if err := w.results.Complete(ctx, job.JobID, *result); err != nil {
		log.Error().Err(err).Msg("Failed to record job result")
		return err
	}

	log.Info().Str("status", string(result.Status)).Msg("Job completed")
	return nil
}

func (w *VerifyWorker) runPipeline(ctx context.Context, job model.VerificationJob, log zerolog.Logger) (*model.ClassificationResult, error) {
	sourceFile, err := w.fetchSource(ctx, job)
	if err != nil {
		return nil, pkgerrors.NewStageError("fetch", err)
	}
	defer func() {
		// The source artifacts are deleted exactly once, on this path,
		// regardless of success or failure.
		if err := os.Remove(sourceFile); err != nil {
			log.Warn().Err(err).Msg("Failed to remove source temp file")
		}
		if err := w.blobs.Delete(context.Background(), job.SourcePath); err != nil {
			log.Warn().Err(err).Str("key", job.SourcePath).Msg("Failed to delete stored source")
		}
	}()

	log.Debug().Msg("Rasterizing and recognizing document")
	page, err := w.adapter.Process(ctx, sourceFile, job.ContentType)
	if err != nil {
		stage := "recognition"
		if errors.Is(err, pkgerrors.ErrConversion) {
			stage = "conversion"
		}
		return nil, pkgerrors.NewStageError(stage, err)
	}
	defer func() {
		if err := page.Cleanup(); err != nil {
			log.Warn().Err(err).Msg("Failed to clean up page image")
		}
	}()

	log.Debug().Msg("Extracting fields")
	fields := w.extractor.Extract(page.Text)

	log.Debug().Msg("Classifying against reference records")
	status, err := classify.Classify(ctx, fields, w.lookup)
	if err != nil {
		return nil, pkgerrors.NewStageError("classification", err)
	}

	return &model.ClassificationResult{
		Status: status,
		Fields: fields,
	}, nil
}

// fetchSource downloads the uploaded document to a private temp file under
// the scratch dir. Each job gets its own file; nothing is shared between
// concurrent jobs.
func (w *VerifyWorker) fetchSource(ctx context.Context, job model.VerificationJob) (string, error) {
	reader, err := w.blobs.Download(ctx, job.SourcePath)
	if err != nil {
		return "", fmt.Errorf("failed to download source: %w", err)
	}
	defer reader.Close()

	tmp, err := os.CreateTemp(w.cfg.OCR.ScratchDir, "src_*"+filepath.Ext(job.SourcePath))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
