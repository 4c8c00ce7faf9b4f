package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dvloznov/admob-reporting/internal/admob"
	"github.com/dvloznov/admob-reporting/internal/api/middleware"
	"github.com/dvloznov/admob-reporting/internal/jobs"
	"github.com/dvloznov/admob-reporting/internal/logger"
	"github.com/dvloznov/admob-reporting/internal/pipeline"
)

// Runner runs the network report pipeline.
type Runner interface {
	RunWithID(ctx context.Context, runID, publisherID string) (*pipeline.Result, error)
}

// PushRequest is the body Pub/Sub posts to a push subscription endpoint.
type PushRequest struct {
	Message struct {
		// Data is base64 in the JSON body and decoded by []byte unmarshalling.
		Data       []byte            `json:"data"`
		MessageID  string            `json:"messageId"`
		Attributes map[string]string `json:"attributes,omitempty"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ReportsHandler handles report runs triggered over HTTP.
type ReportsHandler struct {
	runner Runner
	runs   jobs.RunStore
	log    zerolog.Logger
	now    func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(runner Runner, runs jobs.RunStore, log zerolog.Logger) *ReportsHandler {
	return &ReportsHandler{
		runner: runner,
		runs:   runs,
		log:    log,
		now:    time.Now,
	}
}

// HandlePush handles POST /pubsub/push. Any non-2xx answer makes Pub/Sub
// redeliver the message according to the subscription's retry policy.
func (h *ReportsHandler) HandlePush(w http.ResponseWriter, r *http.Request) {
	var req PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid push envelope")
		return
	}

	publisherID, err := admob.ParsePublisherID(req.Message.Data)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("message_id", req.Message.MessageID).Msg("Invalid message payload")
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, publisherID, req.Message.MessageID)
}

// CreateRun handles POST /api/runs with {"publisher_id": "pub-..."}.
func (h *ReportsHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PublisherID string `json:"publisher_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := admob.ValidatePublisherID(req.PublisherID); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.run(w, r, req.PublisherID, "")
}

func (h *ReportsHandler) run(w http.ResponseWriter, r *http.Request, publisherID, messageID string) {
	ctx := r.Context()

	run := &jobs.ReportRun{
		RunID:       uuid.NewString(),
		PublisherID: publisherID,
		MessageID:   messageID,
		Status:      jobs.RunStatusPending,
		CreatedAt:   h.now(),
	}
	w.Header().Set(middleware.HeaderRunID, run.RunID)
	h.save(ctx, run)

	started := h.now()
	run.Status = jobs.RunStatusRunning
	run.StartedAt = &started
	h.save(ctx, run)

	res, err := h.runner.RunWithID(ctx, run.RunID, publisherID)

	completed := h.now()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = jobs.RunStatusFailed
		run.Error = err.Error()
		h.save(ctx, run)

		log := logger.FromContext(ctx)
		log.Error().Err(err).
			Str(logger.FieldRunID, run.RunID).
			Str(logger.FieldPublisherID, publisherID).
			Msg("Report run failed")
		middleware.WriteJSON(w, http.StatusInternalServerError, run)
		return
	}

	run.Status = jobs.RunStatusSucceeded
	run.Records = res.Records
	run.LoadJobID = res.JobID
	if !res.ReportDate.IsZero() {
		run.ReportDate = res.ReportDate.String()
	}
	h.save(ctx, run)

	middleware.WriteJSON(w, http.StatusOK, run)
}

func (h *ReportsHandler) save(ctx context.Context, run *jobs.ReportRun) {
	if err := h.runs.SaveRun(ctx, run); err != nil {
		h.log.Warn().Err(err).Str(logger.FieldRunID, run.RunID).Msg("Failed to record run status")
	}
}

// ListRuns handles GET /api/runs.
func (h *ReportsHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := jobs.RunFilter{
		PublisherID: q.Get("publisher_id"),
		Status:      jobs.RunStatus(q.Get("status")),
		Limit:       50,
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			middleware.WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}
	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = offset
	}

	runs, err := h.runs.ListRuns(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list runs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun handles GET /api/runs/{id}.
func (h *ReportsHandler) GetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := h.runs.GetRun(r.Context(), runID)
	if errors.Is(err, jobs.ErrRunNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str(logger.FieldRunID, runID).Msg("Failed to get run")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get run")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, run)
}
