package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BerylCAtieno/web-accessibility-api/internal/metrics"
	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

type stubService struct{}

func (stubService) AnalyzeWithChat(context.Context, models.AnalysisInput) (*models.AnalysisResult, error) {
	return models.NewErrorResult("chat"), nil
}

func (stubService) AnalyzeWithAssistant(context.Context, models.AnalysisInput) (*models.AnalysisResult, error) {
	return models.NewErrorResult("assistant"), nil
}

func (stubService) DescribeImage(context.Context, string) []string {
	return []string{}
}

func (stubService) GetRun(_ context.Context, id string) (*models.AnalysisRun, error) {
	return nil, utils.NewNotFoundError("Analysis run " + id + " not found")
}

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(stubService{}, Options{
		AllowedOrigins: []string{"https://app.example.com"},
		MaxUploadSize:  1 << 20,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
	}, utils.NopLogger())
}

func TestRoutes(t *testing.T) {
	h := newTestRouter()

	tests := []struct {
		method string
		path   string
		body   string
		want   int
		substr string
	}{
		{http.MethodGet, "/health", "", http.StatusOK, "healthy"},
		{http.MethodPost, "/api/accessibility/urlWithChat", `{"url":"https://example.com"}`, http.StatusOK, `"explanation":"chat"`},
		{http.MethodPost, "/api/accessibility/urlWithAssistant", `{"url":"https://example.com"}`, http.StatusOK, `"explanation":"assistant"`},
		{http.MethodPost, "/api/accessibility/htmlWithChat", `<p>hi</p>`, http.StatusOK, `"explanation":"chat"`},
		{http.MethodPost, "/api/accessibility/fromImageUrl", `{"url":"https://example.com/a.png"}`, http.StatusOK, `[]`},
		{http.MethodPost, "/api/accessibility/imageUrl", `{"url":"https://example.com/a.png"}`, http.StatusOK, `[]`},
		{http.MethodGet, "/api/accessibility/runs/abc", "", http.StatusNotFound, "not found"},
		{http.MethodGet, "/api/accessibility/urlWithChat", "", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/nope", "", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if !strings.Contains(rec.Body.String(), tt.substr) {
				t.Errorf("body = %q, want substring %q", rec.Body.String(), tt.substr)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `accessibility_http_requests_total{method="GET",route="/health",status="200"} 1`) {
		t.Errorf("metrics output missing health request:\n%s", rec.Body.String())
	}
}

func TestPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/accessibility/urlWithChat", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example.com" {
		t.Errorf("allow origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
