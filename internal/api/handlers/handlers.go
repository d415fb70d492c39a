package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-bot/internal/api/middleware"
	"github.com/dvloznov/finance-bot/internal/ingest"
	"github.com/dvloznov/finance-bot/internal/jobs"
	"github.com/dvloznov/finance-bot/internal/logger"
	"github.com/dvloznov/finance-bot/internal/report"
	"github.com/dvloznov/finance-bot/internal/whatsapp"
)

const maxWebhookBody = 1 << 20

// InboundHandler processes one inbound chat message.
type InboundHandler interface {
	HandleInbound(ctx context.Context, in whatsapp.Inbound, now time.Time) ingest.Outcome
}

// WebhookHandler handles the WhatsApp Cloud API webhook.
type WebhookHandler struct {
	verifyToken string
	inbound     InboundHandler
	now         func() time.Time
	log         zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(verifyToken string, inbound InboundHandler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		inbound:     inbound,
		now:         time.Now,
		log:         log,
	}
}

// Verify handles GET /webhook, the subscription handshake.
func (h *WebhookHandler) Verify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		h.log.Warn().Str("mode", mode).Msg("Webhook verification rejected")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, challenge)
}

// Receive handles POST /webhook. It always answers 200 so the platform
// does not redeliver; problems are logged.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContextOr(ctx, h.log)

	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, maxWebhookBody)).Decode(&payload); err != nil {
		log.Warn().Err(err).Msg("Invalid webhook body")
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	for _, in := range payload.TextMessages() {
		outcome := h.inbound.HandleInbound(ctx, in, h.now())
		log.Debug().
			Str("message_id", in.MessageID).
			Stringer("outcome", outcome).
			Msg("Inbound message handled")
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Exporter renders a report.
type Exporter interface {
	Export(ctx context.Context, sender string, days int) ([]byte, error)
}

// ExportHandler serves PDF reports.
type ExportHandler struct {
	exporter Exporter
	log      zerolog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exporter Exporter, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		exporter: exporter,
		log:      log,
	}
}

type exportError struct {
	Error  string `json:"error"`
	Sender string `json:"sender"`
	Days   string `json:"days"`
}

// Export handles GET /export/{sender}/{days}
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request, sender, daysStr string) {
	ctx := r.Context()
	log := logger.FromContextOr(ctx, h.log).With().Str("sender", sender).Str("days", daysStr).Logger()

	days, err := strconv.Atoi(daysStr)
	if err != nil || sender == "" {
		middleware.WriteJSON(w, http.StatusBadRequest, exportError{Error: "Invalid sender or days", Sender: sender, Days: daysStr})
		return
	}

	data, err := h.exporter.Export(ctx, sender, days)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "Failed to generate PDF"
		if errors.Is(err, report.ErrInvalidDays) {
			status = http.StatusBadRequest
			msg = report.ErrInvalidDays.Error()
		} else {
			log.Error().Err(err).Msg("Export failed")
		}
		middleware.WriteJSON(w, status, exportError{Error: msg, Sender: sender, Days: daysStr})
		return
	}
	if len(data) == 0 {
		log.Error().Msg("Export produced no bytes")
		middleware.WriteJSON(w, http.StatusInternalServerError, exportError{Error: "PDF generation failed - empty output", Sender: sender, Days: daysStr})
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", report.FileName(sender, days)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// ConfigHandler reports public settings.
type ConfigHandler struct {
	baseURL string
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(baseURL string) *ConfigHandler {
	return &ConfigHandler{baseURL: baseURL}
}

// GetConfig handles GET /config
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"app_base_url":   h.baseURL,
		"export_example": h.baseURL + "/export/{phone}/{days}",
	})
}

// JobsHandler handles job run endpoints.
type JobsHandler struct {
	store jobs.RunStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.RunStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, runID string) {
	ctx := r.Context()

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		h.log.Debug().Err(err).Str("run_id", runID).Msg("Failed to get job run")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.RunFilter{
		Type:   jobs.JobType(query.Get("type")),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	runs, err := h.store.ListRuns(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list job runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  runs,
		"count": len(runs),
	})
}
