// Package api serves the report pipeline over HTTP: a Pub/Sub push endpoint
// for Cloud Run deployments and a small run status API.
package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/api/handlers"
	"github.com/dvloznov/admob-reporting/internal/api/middleware"
)

// NewRouter registers every route and wraps them in the standard middleware.
func NewRouter(reports *handlers.ReportsHandler, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /pubsub/push", reports.HandlePush)
	mux.HandleFunc("POST /api/runs", reports.CreateRun)
	mux.HandleFunc("GET /api/runs", reports.ListRuns)
	mux.HandleFunc("GET /api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		reports.GetRun(w, r, r.PathValue("id"))
	})

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.RequestID(log)(
		middleware.Recovery(
			middleware.Logger(mux),
		),
	)
}
