package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/reqnotify/internal/usecase"
)

// NotifierView is the redacted notifier configuration shown on the admin API.
type NotifierView struct {
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers,omitempty"`
	HasBody     bool              `json:"has_body"`
	BodyBytes   int               `json:"body_bytes"`
	Timeout     string            `json:"timeout"`
	MaxInFlight int               `json:"max_in_flight"`
	Journal     string            `json:"journal_stream,omitempty"`
}

// AdminHandler handles HTTP requests for the admin API.
// uc is nil when no outcome journal is configured.
type AdminHandler struct {
	uc       *usecase.AdminStreamUseCase
	notifier NotifierView
	stream   string
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(uc *usecase.AdminStreamUseCase, notifier NotifierView, stream string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{uc: uc, notifier: notifier, stream: stream, logger: logger}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetNotifier returns the active notifier configuration with secrets masked.
// GET /admin/notifier
func (h *AdminHandler) GetNotifier(w http.ResponseWriter, r *http.Request) {
	h.respondWithJSON(w, http.StatusOK, h.notifier)
}

// RecentOutcomes lists the newest journaled delivery outcomes.
// GET /admin/outcomes/recent?count={count}
func (h *AdminHandler) RecentOutcomes(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	count, ok := h.int64Query(w, r, "count", 100)
	if !ok {
		return
	}

	outcomes, err := h.uc.RecentOutcomes(r.Context(), h.stream, count)
	if err != nil {
		h.fail(w, "failed to read recent outcomes", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, outcomes)
}

// GetGroupInfo handles requests to get consumer group info.
// GET /admin/streams/{streamName}/groups
func (h *AdminHandler) GetGroupInfo(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	groups, err := h.uc.GetGroupInfo(r.Context(), chi.URLParam(r, "streamName"))
	if err != nil {
		h.fail(w, "failed to get group info", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, groups)
}

// GetConsumerInfo handles requests to get consumer info for a group.
// GET /admin/streams/{streamName}/groups/{groupName}/consumers
func (h *AdminHandler) GetConsumerInfo(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	consumers, err := h.uc.GetConsumerInfo(r.Context(), chi.URLParam(r, "streamName"), chi.URLParam(r, "groupName"))
	if err != nil {
		h.fail(w, "failed to get consumer info", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, consumers)
}

// GetPendingSummary handles requests to get a summary of pending messages.
// GET /admin/streams/{streamName}/groups/{groupName}/pending
func (h *AdminHandler) GetPendingSummary(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	summary, err := h.uc.GetPendingSummary(r.Context(), chi.URLParam(r, "streamName"), chi.URLParam(r, "groupName"))
	if err != nil {
		h.fail(w, "failed to get pending summary", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, summary)
}

// GetPendingMessages handles requests to list pending messages.
// GET /admin/streams/{streamName}/groups/{groupName}/pending/messages?consumer={consumerName}&start={startID}&count={count}
func (h *AdminHandler) GetPendingMessages(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	count, ok := h.int64Query(w, r, "count", 100)
	if !ok {
		return
	}

	q := r.URL.Query()
	messages, err := h.uc.GetPendingMessages(r.Context(), chi.URLParam(r, "streamName"), chi.URLParam(r, "groupName"),
		q.Get("consumer"), q.Get("start"), count)
	if err != nil {
		h.fail(w, "failed to get pending messages", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, messages)
}

// ClaimMessages handles requests to claim pending messages.
// POST /admin/streams/{streamName}/groups/{groupName}/claim
func (h *AdminHandler) ClaimMessages(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	var payload struct {
		Consumer    string   `json:"consumer"`
		MinIdleTime string   `json:"min_idle_time"`
		MessageIDs  []string `json:"message_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	minIdle, err := time.ParseDuration(payload.MinIdleTime)
	if err != nil {
		http.Error(w, "invalid min_idle_time format", http.StatusBadRequest)
		return
	}

	claimed, err := h.uc.ClaimMessages(r.Context(), chi.URLParam(r, "streamName"), chi.URLParam(r, "groupName"),
		payload.Consumer, minIdle, payload.MessageIDs)
	if err != nil {
		h.fail(w, "failed to claim messages", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, claimed)
}

// AcknowledgeMessages handles requests to acknowledge messages.
// POST /admin/streams/{streamName}/groups/{groupName}/ack
func (h *AdminHandler) AcknowledgeMessages(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	var payload struct {
		MessageIDs []string `json:"message_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	count, err := h.uc.AcknowledgeMessages(r.Context(), chi.URLParam(r, "streamName"), chi.URLParam(r, "groupName"), payload.MessageIDs...)
	if err != nil {
		h.fail(w, "failed to acknowledge messages", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]int64{"acknowledged": count})
}

// TrimStream handles requests to trim a stream.
// POST /admin/streams/{streamName}/trim
func (h *AdminHandler) TrimStream(w http.ResponseWriter, r *http.Request) {
	if !h.journalEnabled(w) {
		return
	}
	var payload struct {
		MaxLen int64 `json:"maxlen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	trimmed, err := h.uc.TrimStream(r.Context(), chi.URLParam(r, "streamName"), payload.MaxLen)
	if err != nil {
		h.fail(w, "failed to trim stream", err)
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]int64{"trimmed": trimmed})
}

func (h *AdminHandler) journalEnabled(w http.ResponseWriter) bool {
	if h.uc == nil {
		http.Error(w, "outcome journal is not configured", http.StatusServiceUnavailable)
		return false
	}
	return true
}

func (h *AdminHandler) int64Query(w http.ResponseWriter, r *http.Request, name string, def int64) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		http.Error(w, "invalid "+name+" parameter", http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

func (h *AdminHandler) fail(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, usecase.ErrInvalidArgument) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.logger.Error(msg, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *AdminHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
