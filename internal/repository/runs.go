package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
)

// RunRepository stores analysis run metadata.
type RunRepository interface {
	Create(ctx context.Context, run *models.AnalysisRun) error
	Complete(ctx context.Context, run *models.AnalysisRun) error
	GetByID(ctx context.Context, id string) (*models.AnalysisRun, error)
	LatestByRequestID(ctx context.Context, requestID string) (*models.AnalysisRun, error)
}

type runRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Create(ctx context.Context, run *models.AnalysisRun) error {
	run.CreatedAt = dbTime(run.CreatedAt)

	query := `
		INSERT INTO analysis_runs (id, request_id, input_type, strategy, source_url, status, created_at)
		VALUES (:id, :request_id, :input_type, :strategy, :source_url, :status, :created_at)
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

func (r *runRepository) Complete(ctx context.Context, run *models.AnalysisRun) error {
	if run.CompletedAt != nil {
		at := dbTime(*run.CompletedAt)
		run.CompletedAt = &at
	}

	query := `
		UPDATE analysis_runs
		SET source_url = :source_url, status = :status, item_count = :item_count,
		    error = :error, duration_ms = :duration_ms, completed_at = :completed_at
		WHERE id = :id
	`

	_, err := r.db.NamedExecContext(ctx, query, run)
	return err
}

const selectRun = `
	SELECT id, request_id, input_type, strategy, source_url, status, item_count, error,
	       duration_ms, created_at, completed_at
	FROM analysis_runs
`

// GetByID returns nil, nil when no run has the id.
func (r *runRepository) GetByID(ctx context.Context, id string) (*models.AnalysisRun, error) {
	return r.getOne(ctx, selectRun+`WHERE id = ?`, id)
}

// LatestByRequestID returns the most recent run started under requestID, or
// nil, nil. Retries reuse a request ID, so several runs may share one.
func (r *runRepository) LatestByRequestID(ctx context.Context, requestID string) (*models.AnalysisRun, error) {
	if requestID == "" {
		return nil, nil
	}
	return r.getOne(ctx, selectRun+`WHERE request_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, requestID)
}

func (r *runRepository) getOne(ctx context.Context, query string, args ...any) (*models.AnalysisRun, error) {
	var run models.AnalysisRun

	err := r.db.GetContext(ctx, &run, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}
