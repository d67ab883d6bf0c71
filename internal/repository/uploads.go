package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
)

// UploadRepository is the ledger of documents staged in blob storage.
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) error
	ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Upload, error)
	MarkDeleted(ctx context.Context, id string, at time.Time) error
}

type uploadRepository struct {
	db *sqlx.DB
}

func NewUploadRepository(db *sqlx.DB) UploadRepository {
	return &uploadRepository{db: db}
}

// dbTime normalizes timestamps so the stored text compares in time order.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func (r *uploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	upload.CreatedAt = dbTime(upload.CreatedAt)
	upload.ExpiresAt = dbTime(upload.ExpiresAt)

	query := `
		INSERT INTO uploads (id, object_key, content_type, size, created_at, expires_at)
		VALUES (:id, :object_key, :content_type, :size, :created_at, :expires_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, upload)
	return err
}

// ListExpired returns uploads whose URL has expired and whose blob is still present, oldest first.
func (r *uploadRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Upload, error) {
	query := `
		SELECT id, object_key, content_type, size, created_at, expires_at, deleted_at
		FROM uploads
		WHERE deleted_at IS NULL AND expires_at <= ?
		ORDER BY expires_at
		LIMIT ?
	`

	uploads := []models.Upload{}
	if err := r.db.SelectContext(ctx, &uploads, query, dbTime(now), limit); err != nil {
		return nil, err
	}
	return uploads, nil
}

func (r *uploadRepository) MarkDeleted(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE uploads SET deleted_at = ? WHERE id = ?`, dbTime(at), id)
	return err
}
