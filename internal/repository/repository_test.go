package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/BerylCAtieno/web-accessibility-api/internal/db"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	if err := db.RunMigrations(path); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	conn, err := db.NewSQLiteDB(path)
	if err != nil {
		t.Fatalf("NewSQLiteDB: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestUploadRepository(t *testing.T) {
	repo := NewUploadRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	uploads := []*models.Upload{
		{ID: "old", ObjectKey: "uploads/old.pdf", ContentType: "application/pdf", Size: 10, CreatedAt: now.Add(-3 * time.Hour), ExpiresAt: now.Add(-2 * time.Hour)},
		{ID: "older", ObjectKey: "uploads/older.pdf", ContentType: "application/pdf", Size: 20, CreatedAt: now.Add(-4 * time.Hour), ExpiresAt: now.Add(-3 * time.Hour)},
		{ID: "fresh", ObjectKey: "uploads/fresh.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Size: 30, CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	}
	for _, u := range uploads {
		if err := repo.Create(ctx, u); err != nil {
			t.Fatalf("Create(%s): %v", u.ID, err)
		}
	}

	expired, err := repo.ListExpired(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 2 || expired[0].ID != "older" || expired[1].ID != "old" {
		t.Fatalf("expired = %+v", expired)
	}
	if expired[0].ObjectKey != "uploads/older.pdf" || expired[0].Size != 20 || !expired[0].ExpiresAt.Equal(now.Add(-3*time.Hour)) {
		t.Errorf("scanned upload = %+v", expired[0])
	}

	limited, err := repo.ListExpired(ctx, now, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("limited = %+v, %v", limited, err)
	}

	if err := repo.MarkDeleted(ctx, "older", now); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}

	expired, err = repo.ListExpired(ctx, now, 10)
	if err != nil {
		t.Fatalf("ListExpired: %v", err)
	}
	if len(expired) != 1 || expired[0].ID != "old" {
		t.Errorf("after delete expired = %+v", expired)
	}

	later, _ := repo.ListExpired(ctx, now.Add(2*time.Hour), 10)
	if len(later) != 2 {
		t.Errorf("later expired = %d, want 2", len(later))
	}
}

func TestRunRepository(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	run := &models.AnalysisRun{
		ID:        "run-1",
		InputType: "url",
		Strategy:  "chat",
		Status:    models.RunStatusRunning,
		CreatedAt: started,
	}
	if err := repo.Create(ctx, run); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, "run-1")
	if err != nil || got == nil {
		t.Fatalf("GetByID = %+v, %v", got, err)
	}
	if got.Status != models.RunStatusRunning || got.CompletedAt != nil {
		t.Errorf("running run = %+v", got)
	}

	done := started.Add(1500 * time.Millisecond)
	run.Status = models.RunStatusSucceeded
	run.SourceURL = "https://example.com"
	run.ItemCount = 4
	run.DurationMS = 1500
	run.CompletedAt = &done
	if err := repo.Complete(ctx, run); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	got, err = repo.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.RunStatusSucceeded || got.ItemCount != 4 || got.DurationMS != 1500 || got.SourceURL != "https://example.com" {
		t.Errorf("completed run = %+v", got)
	}
	if got.CompletedAt == nil || !got.CreatedAt.Equal(started) {
		t.Errorf("timestamps = %v / %v", got.CreatedAt, got.CompletedAt)
	}

	missing, err := repo.GetByID(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("missing run = %+v, %v", missing, err)
	}
}

func TestRunRepository_LatestByRequestID(t *testing.T) {
	repo := NewRunRepository(newTestDB(t))
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, run := range []*models.AnalysisRun{
		{ID: "run-a", RequestID: "req-1", InputType: "url", Strategy: "chat", Status: models.RunStatusFailed, CreatedAt: at},
		{ID: "run-b", RequestID: "req-1", InputType: "url", Strategy: "chat", Status: models.RunStatusSucceeded, CreatedAt: at},
		{ID: "run-c", RequestID: "req-2", InputType: "html", Strategy: "assistant", Status: models.RunStatusRunning, CreatedAt: at.Add(-time.Minute)},
	} {
		if err := repo.Create(ctx, run); err != nil {
			t.Fatalf("Create(%s): %v", run.ID, err)
		}
	}

	got, err := repo.LatestByRequestID(ctx, "req-1")
	if err != nil || got == nil {
		t.Fatalf("LatestByRequestID = %+v, %v", got, err)
	}
	if got.ID != "run-b" || got.RequestID != "req-1" {
		t.Errorf("latest run = %+v, want run-b", got)
	}

	for _, id := range []string{"", "req-unknown"} {
		if missing, err := repo.LatestByRequestID(ctx, id); err != nil || missing != nil {
			t.Errorf("LatestByRequestID(%q) = %+v, %v", id, missing, err)
		}
	}
}
