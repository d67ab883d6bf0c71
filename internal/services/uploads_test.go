package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/web-accessibility-api/internal/metrics"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

func newTestUploadService(store *fakeStorage, repo *fakeUploads, now time.Time) *uploadService {
	s := NewUploadService(store, repo, time.Hour, metrics.NewNop(), utils.NopLogger()).(*uploadService)
	s.now = func() time.Time { return now }
	return s
}

func TestStageDocument(t *testing.T) {
	store := newFakeStorage()
	repo := &fakeUploads{}
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newTestUploadService(store, repo, now)

	pdf := []byte("%PDF-1.4\n%âãÏÓ\n1 0 obj\n<<>>\nendobj\n")
	signed, err := s.StageDocument(context.Background(), pdf)
	if err != nil {
		t.Fatalf("StageDocument: %v", err)
	}

	if len(repo.uploads) != 1 {
		t.Fatalf("ledger rows = %d, want 1", len(repo.uploads))
	}
	u := repo.uploads[0]
	if !strings.HasPrefix(u.ObjectKey, "uploads/"+u.ID) || !strings.HasSuffix(u.ObjectKey, ".pdf") {
		t.Errorf("object key = %q", u.ObjectKey)
	}
	if u.ContentType != "application/pdf" || store.types[u.ObjectKey] != "application/pdf" {
		t.Errorf("content type = %q / %q", u.ContentType, store.types[u.ObjectKey])
	}
	if !u.ExpiresAt.Equal(now.Add(time.Hour)) || u.Size != int64(len(pdf)) {
		t.Errorf("upload = %+v", u)
	}
	if signed != "https://blob.example.com/"+u.ObjectKey+"?ttl=1h0m0s" {
		t.Errorf("signed URL = %q", signed)
	}
}

func TestStageDocument_Failures(t *testing.T) {
	store := newFakeStorage()
	store.uploadErr = errors.New("access denied")
	s := newTestUploadService(store, &fakeUploads{}, time.Now())

	_, err := s.StageDocument(context.Background(), []byte("data"))
	if utils.KindOf(err) != utils.KindUpstream {
		t.Errorf("upload failure kind = %v", utils.KindOf(err))
	}

	store = newFakeStorage()
	s = newTestUploadService(store, &fakeUploads{err: errors.New("disk full")}, time.Now())
	_, err = s.StageDocument(context.Background(), []byte("data"))
	if utils.KindOf(err) != utils.KindInternal {
		t.Errorf("ledger failure kind = %v", utils.KindOf(err))
	}
	if len(store.objects) != 0 {
		t.Errorf("unrecorded blob left behind: %v", store.objects)
	}
}

func TestSweepExpired(t *testing.T) {
	store := newFakeStorage()
	repo := &fakeUploads{}
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := newTestUploadService(store, repo, start)

	for i := 0; i < 3; i++ {
		if _, err := s.StageDocument(context.Background(), []byte("plain text document")); err != nil {
			t.Fatalf("StageDocument: %v", err)
		}
	}
	store.failKeys[repo.uploads[2].ObjectKey] = true

	if n, _ := s.SweepExpired(context.Background()); n != 0 {
		t.Errorf("swept %d before expiry", n)
	}

	s.now = func() time.Time { return start.Add(2 * time.Hour) }
	n, err := s.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("swept = %d, want 2", n)
	}
	if len(store.objects) != 1 {
		t.Errorf("remaining objects = %d, want 1", len(store.objects))
	}
	if repo.uploads[2].DeletedAt != nil {
		t.Error("failed delete was marked as deleted")
	}

	delete(store.failKeys, repo.uploads[2].ObjectKey)
	if n, _ := s.SweepExpired(context.Background()); n != 1 {
		t.Errorf("retry swept = %d, want 1", n)
	}
}

func TestRunJanitorStopsWithContext(t *testing.T) {
	s := newTestUploadService(newFakeStorage(), &fakeUploads{}, time.Now())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.RunJanitor(ctx, time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
