package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
)

type fakeBuilder struct {
	prompt    string
	sourceURL string
	err       error
}

func (f *fakeBuilder) Build(_ context.Context, _ models.AnalysisInput) (string, string, error) {
	return f.prompt, f.sourceURL, f.err
}

type fakeInvoker struct {
	reply string
	err   error
	got   string
	calls int
}

func (f *fakeInvoker) Invoke(_ context.Context, prompt string) (string, error) {
	f.calls++
	f.got = prompt
	return f.reply, f.err
}

type fakeCaptioner struct {
	mu       sync.Mutex
	captions map[string][]string
}

func (f *fakeCaptioner) Caption(_ context.Context, imageURL string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captions[imageURL]
}

type fakeRuns struct {
	mu    sync.Mutex
	runs  map[string]models.AnalysisRun
	order []string
	err   error
}

func newFakeRuns() *fakeRuns {
	return &fakeRuns{runs: map[string]models.AnalysisRun{}}
}

func (f *fakeRuns) Create(_ context.Context, run *models.AnalysisRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if _, ok := f.runs[run.ID]; ok {
		return errors.New("duplicate run id")
	}
	f.runs[run.ID] = *run
	f.order = append(f.order, run.ID)
	return nil
}

func (f *fakeRuns) Complete(_ context.Context, run *models.AnalysisRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[run.ID] = *run
	return nil
}

func (f *fakeRuns) GetByID(_ context.Context, id string) (*models.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	run, ok := f.runs[id]
	if !ok {
		return nil, nil
	}
	return &run, nil
}

func (f *fakeRuns) LatestByRequestID(_ context.Context, requestID string) (*models.AnalysisRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.order) - 1; i >= 0; i-- {
		if run := f.runs[f.order[i]]; requestID != "" && run.RequestID == requestID {
			return &run, nil
		}
	}
	return nil, nil
}

func (f *fakeRuns) only() models.AnalysisRun {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.runs {
		return r
	}
	return models.AnalysisRun{}
}

type fakeStorage struct {
	mu        sync.Mutex
	objects   map[string][]byte
	types     map[string]string
	failKeys  map[string]bool
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}, types: map[string]string{}, failKeys: map[string]bool{}}
}

func (f *fakeStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.objects[key] = data
	f.types[key] = contentType
	return nil
}

func (f *fakeStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failKeys[key] {
		return errors.New("delete refused")
	}
	delete(f.objects, key)
	return nil
}

func (f *fakeStorage) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://blob.example.com/" + key + "?ttl=" + ttl.String(), nil
}

type fakeUploads struct {
	mu      sync.Mutex
	uploads []*models.Upload
	err     error
}

func (f *fakeUploads) Create(_ context.Context, u *models.Upload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.uploads = append(f.uploads, u)
	return nil
}

func (f *fakeUploads) ListExpired(_ context.Context, now time.Time, limit int) ([]models.Upload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Upload
	for _, u := range f.uploads {
		if u.DeletedAt == nil && !u.ExpiresAt.After(now) && len(out) < limit {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (f *fakeUploads) MarkDeleted(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.uploads {
		if u.ID == id {
			u.DeletedAt = &at
		}
	}
	return nil
}
