package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/BerylCAtieno/web-accessibility-api/internal/handlers"
	"github.com/BerylCAtieno/web-accessibility-api/internal/metrics"
	"github.com/BerylCAtieno/web-accessibility-api/internal/middleware"
	"github.com/BerylCAtieno/web-accessibility-api/internal/services"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

type Options struct {
	AllowedOrigins []string
	MaxUploadSize  int64
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
}

func NewRouter(service services.AccessibilityService, opts Options, logger *utils.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Metrics(opts.Metrics))

	h := handlers.NewAccessibilityHandler(service, opts.MaxUploadSize, logger)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	api := r.PathPrefix("/api/accessibility").Subrouter()

	api.HandleFunc("/urlWithChat", h.URLWithChat).Methods(http.MethodPost)
	api.HandleFunc("/urlWithAssistant", h.URLWithAssistant).Methods(http.MethodPost)
	api.HandleFunc("/htmlWithChat", h.HTMLWithChat).Methods(http.MethodPost)
	api.HandleFunc("/htmlWithAssistant", h.HTMLWithAssistant).Methods(http.MethodPost)
	api.HandleFunc("/pdfWithChat", h.PDFWithChat).Methods(http.MethodPost)
	api.HandleFunc("/pdfWithAssistant", h.PDFWithAssistant).Methods(http.MethodPost)
	api.HandleFunc("/wordWithChat", h.WordWithChat).Methods(http.MethodPost)
	api.HandleFunc("/wordWithAssistant", h.WordWithAssistant).Methods(http.MethodPost)
	api.HandleFunc("/fromImageUrl", h.ImageURL).Methods(http.MethodPost)
	api.HandleFunc("/imageUrl", h.ImageURL).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}", h.GetRun).Methods(http.MethodGet)

	// Outermost first: every response, matched or not, gets an ID, a log line and CORS headers.
	var handler http.Handler = r
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.CORS(opts.AllowedOrigins)(handler)
	handler = middleware.Logger(logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
