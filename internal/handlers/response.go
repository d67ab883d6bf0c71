package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/BerylCAtieno/web-accessibility-api/internal/models"
	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

func respondJSON(w http.ResponseWriter, logger *utils.Logger, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// respondError writes {"error": message}. Messages of non-application errors
// are not exposed.
func respondError(w http.ResponseWriter, r *http.Request, logger *utils.Logger, err error) {
	status := utils.StatusOf(err)
	message := "Internal server error"
	if utils.IsAppError(err) {
		message = err.Error()
	}

	logRequestError(r, logger, status, err)
	respondJSON(w, logger, status, map[string]string{"error": message})
}

// respondAnalysisError writes an empty AnalysisResult whose Explanation carries the failure.
func respondAnalysisError(w http.ResponseWriter, r *http.Request, logger *utils.Logger, err error) {
	status := utils.StatusOf(err)
	logRequestError(r, logger, status, err)
	respondJSON(w, logger, status, models.NewErrorResult(err.Error()))
}

func logRequestError(r *http.Request, logger *utils.Logger, status int, err error) {
	args := []any{"status", status, "error", err, "path", r.URL.Path, "request_id", utils.RequestIDFromContext(r.Context())}
	if status >= http.StatusInternalServerError {
		logger.Error("Request error", args...)
		return
	}
	logger.Warn("Request error", args...)
}
