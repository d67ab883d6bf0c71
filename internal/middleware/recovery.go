package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/BerylCAtieno/web-accessibility-api/internal/utils"
)

// Recovery turns a handler panic into a 500 JSON response.
func Recovery(logger *utils.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("panic recovered",
					"panic", rec,
					"path", r.URL.Path,
					"request_id", utils.RequestIDFromContext(r.Context()),
					"stack", string(debug.Stack()),
				)

				if rw.wroteHeader {
					return
				}
				rw.Header().Set("Content-Type", "application/json")
				rw.WriteHeader(http.StatusInternalServerError)
				_ = json.NewEncoder(rw).Encode(map[string]string{"error": "Internal server error"})
			}()

			next.ServeHTTP(rw, r)
		})
	}
}
