// Package api assembles the HTTP surface of the bot.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-bot/internal/api/handlers"
	"github.com/dvloznov/finance-bot/internal/api/middleware"
)

// Handlers groups the endpoint handlers.
type Handlers struct {
	Webhook *handlers.WebhookHandler
	Export  *handlers.ExportHandler
	Config  *handlers.ConfigHandler
	Jobs    *handlers.JobsHandler
}

// NewHandler builds the router and wraps it in the standard middleware.
func NewHandler(h Handlers, log zerolog.Logger, corsOrigins ...string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/webhook", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Webhook.Verify(w, r)
		case http.MethodPost:
			h.Webhook.Receive(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/export/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		// Extract sender and days from path
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/export/"), "/"), "/")
		if len(parts) != 2 || parts[0] == "" {
			middleware.WriteError(w, http.StatusNotFound, "Use /export/{phone}/{days}")
			return
		}
		h.Export.Export(w, r, parts[0], parts[1])
	})

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Config.GetConfig(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if runID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, runID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS(corsOrigins...),
	)
}
