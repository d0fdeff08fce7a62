package api

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"cert-verification/internal/config"
	"cert-verification/internal/db"
	"cert-verification/internal/logger"
	"cert-verification/internal/model"
	"cert-verification/internal/storage"
	"cert-verification/internal/store"
	pkgerrors "cert-verification/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const uploadField = "certificate"

// JobEnqueuer pushes verification jobs onto the work queue.
type JobEnqueuer interface {
	EnqueueVerification(ctx context.Context, job model.VerificationJob) error
}

type Handler struct {
	results  store.ResultStore
	producer JobEnqueuer
	blobs    storage.Storage
	repo     db.RecordRepository
	cfg      *config.Config
	log      zerolog.Logger
}

func NewHandler(
	results store.ResultStore,
	producer JobEnqueuer,
	blobs storage.Storage,
	repo db.RecordRepository,
	cfg *config.Config,
) *Handler {
	return &Handler{
		results:  results,
		producer: producer,
		blobs:    blobs,
		repo:     repo,
		cfg:      cfg,
		log:      logger.Get(),
	}
}

// Enqueue accepts one or more certificate attachments and creates an
// independent job per document. It returns as soon as every document is
// stored and queued; pipeline execution never runs on this path.
//
// Intake is two-phase: every blob is uploaded before any job is created,
// so a storage failure rejects the whole batch with nothing queued. If
// queueing itself fails partway, the ids queued so far are returned with
// the error so the caller can still poll them.
func (h *Handler) Enqueue(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form"})
		return
	}

	files := form.File[uploadField]
	if len(files) == 0 {
		vErr := pkgerrors.ValidationError{Field: uploadField, Message: "no attachments provided"}
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
		return
	}

	// Type check up front so a bad attachment rejects the request before
	// anything enters the queue.
	for _, file := range files {
		if err := validateFileType(file); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "file": file.Filename})
			return
		}
	}

	ctx := c.Request.Context()

	uploads, err := h.uploadBatch(ctx, files)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to store document batch")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store document"})
		return
	}

	jobIDs := make([]string, 0, len(uploads))
	for i, up := range uploads {
		if err := h.enqueueUpload(ctx, up); err != nil {
			h.log.Error().Err(err).Str("job_id", up.jobID).Msg("Failed to enqueue document")
			h.discardUploads(ctx, uploads[i:])
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":  "Failed to queue document",
				"jobIds": jobIDs,
			})
			return
		}
		jobIDs = append(jobIDs, up.jobID)
	}

	h.log.Info().Int("count", len(jobIDs)).Msg("Verification jobs enqueued")
	c.JSON(http.StatusAccepted, model.EnqueueResponse{JobIDs: jobIDs})
}

type pendingUpload struct {
	jobID       string
	key         string
	contentType string
}

// uploadBatch stores every attachment before anything is queued. On any
// upload failure the blobs stored so far are discarded and the batch is
// rejected whole.
func (h *Handler) uploadBatch(ctx context.Context, files []*multipart.FileHeader) ([]pendingUpload, error) {
	uploads := make([]pendingUpload, 0, len(files))
	for _, file := range files {
		jobID := uuid.NewString()
		key := "uploads/" + jobID + strings.ToLower(filepath.Ext(file.Filename))

		if err := h.uploadFile(ctx, key, file); err != nil {
			h.discardUploads(ctx, uploads)
			return nil, fmt.Errorf("upload %s: %w", file.Filename, err)
		}
		uploads = append(uploads, pendingUpload{
			jobID:       jobID,
			key:         key,
			contentType: file.Header.Get("Content-Type"),
		})
	}
	return uploads, nil
}

func (h *Handler) uploadFile(ctx context.Context, key string, file *multipart.FileHeader) error {
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	return h.blobs.Upload(ctx, key, src)
}

func (h *Handler) enqueueUpload(ctx context.Context, up pendingUpload) error {
	now := time.Now().UTC()
	if err := h.results.Create(ctx, up.jobID, now); err != nil {
		return err
	}

	job := model.VerificationJob{
		JobID:       up.jobID,
		SourcePath:  up.key,
		ContentType: up.contentType,
		EnqueuedAt:  now,
	}
	if err := h.producer.EnqueueVerification(ctx, job); err != nil {
		// The record exists but no worker will ever pick it up; mark it
		// failed so pollers are not left on pending forever.
		if failErr := h.results.Fail(ctx, up.jobID, "failed to queue document"); failErr != nil {
			h.log.Error().Err(failErr).Str("job_id", up.jobID).Msg("Failed to mark unqueued job failed")
		}
		return err
	}
	return nil
}

// discardUploads best-effort deletes blobs that will never be processed.
func (h *Handler) discardUploads(ctx context.Context, uploads []pendingUpload) {
	for _, up := range uploads {
		if err := h.blobs.Delete(ctx, up.key); err != nil {
			h.log.Warn().Err(err).Str("key", up.key).Msg("Failed to discard stored document")
		}
	}
}

func (h *Handler) Status(c *gin.Context) {
	jobID := c.Param("jobId")

	record, err := h.results.Get(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to read job status")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, model.StatusResponse{
		State:  record.State,
		Result: record.Result,
		Error:  record.Error,
	})
}

func (h *Handler) Login(c *gin.Context) {
	role := c.Param("role")
	if role != "admin" && role != "authenticator" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown login role"})
		return
	}

	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ok, err := h.repo.VerifyLogin(c.Request.Context(), role, req.Username, req.Password)
	if err != nil {
		h.log.Error().Err(err).Str("role", role).Msg("Login lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		c.JSON(http.StatusUnauthorized, model.LoginResponse{Success: false, Error: "invalid credentials"})
		return
	}

	c.JSON(http.StatusOK, model.LoginResponse{Success: true})
}

func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.cfg.App.Name,
		"version": h.cfg.App.Version,
	})
}

func validateFileType(file *multipart.FileHeader) error {
	switch strings.ToLower(filepath.Ext(file.Filename)) {
	case ".pdf", ".png":
		return nil
	}

	switch file.Header.Get("Content-Type") {
	case "application/pdf", "image/png":
		return nil
	}
	return pkgerrors.ErrUnsupportedFileType
}
