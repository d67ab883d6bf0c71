package services

import (
	"context"
	"fmt"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/BerylCAtieno/web-accessibility-api/internal/metrics"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/repository"
	"github.com/BerylCAtieno/web-accessibility-api/internal/storage"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

const sweepBatchSize = 100

// UploadService stages documents in blob storage for the model to read by
// URL, and removes them once the URL has expired.
type UploadService interface {
	StageDocument(ctx context.Context, data []byte) (string, error)
	SweepExpired(ctx context.Context) (int, error)
	RunJanitor(ctx context.Context, interval time.Duration)
}

type uploadService struct {
	storage storage.Storage
	repo    repository.UploadRepository
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *utils.Logger
	now     func() time.Time
}

func NewUploadService(store storage.Storage, repo repository.UploadRepository, ttl time.Duration, m *metrics.Metrics, logger *utils.Logger) UploadService {
	return &uploadService{
		storage: store,
		repo:    repo,
		ttl:     ttl,
		metrics: m,
		logger:  logger.With("component", "uploads"),
		now:     time.Now,
	}
}

// StageDocument uploads data under uploads/<id><ext> and returns a presigned GET URL.
func (s *uploadService) StageDocument(ctx context.Context, data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	id := utils.GenerateID()
	key := fmt.Sprintf("uploads/%s%s", id, mtype.Extension())

	if err := s.storage.Upload(ctx, key, data, mtype.String()); err != nil {
		s.logger.Error("Failed to upload document", "key", key, "error", err)
		return "", utils.NewUpstreamError("Failed to store the document", err)
	}

	now := s.now()
	upload := &models.Upload{
		ID:          id,
		ObjectKey:   key,
		ContentType: mtype.String(),
		Size:        int64(len(data)),
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.repo.Create(ctx, upload); err != nil {
		// Without a ledger row the janitor would never remove the blob.
		s.logger.Error("Failed to record upload", "key", key, "error", err)
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			s.logger.Error("Failed to remove unrecorded upload", "key", key, "error", delErr)
		}
		return "", utils.NewInternalError("Failed to record the document upload")
	}

	signed, err := s.storage.PresignGet(ctx, key, s.ttl)
	if err != nil {
		s.logger.Error("Failed to sign document URL", "key", key, "error", err)
		return "", utils.NewUpstreamError("Failed to create a document URL", err)
	}

	s.metrics.UploadStaged()
	s.logger.Info("Document staged", "upload_id", id, "key", key, "content_type", mtype.String(), "size", len(data))

	return signed, nil
}

// SweepExpired deletes the blobs of expired uploads and marks their rows.
// A blob that fails to delete stays in the ledger and is retried next sweep.
func (s *uploadService) SweepExpired(ctx context.Context) (int, error) {
	expired, err := s.repo.ListExpired(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired uploads: %w", err)
	}

	swept := 0
	for _, u := range expired {
		if err := s.storage.Delete(ctx, u.ObjectKey); err != nil {
			s.logger.Warn("Failed to delete expired upload", "upload_id", u.ID, "key", u.ObjectKey, "error", err)
			s.metrics.UploadSwept(metrics.OutcomeFailure)
			continue
		}
		if err := s.repo.MarkDeleted(ctx, u.ID, s.now()); err != nil {
			s.logger.Warn("Failed to mark upload deleted", "upload_id", u.ID, "error", err)
			s.metrics.UploadSwept(metrics.OutcomeFailure)
			continue
		}
		s.metrics.UploadSwept(metrics.OutcomeSuccess)
		swept++
	}

	return swept, nil
}

// RunJanitor sweeps every interval until ctx is done.
func (s *uploadService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx)
			if err != nil {
				s.logger.Error("Upload sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info("Expired uploads removed", "count", n)
			}
		}
	}
}
