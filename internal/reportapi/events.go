package reportapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/beacon/internal/eventbus"
	"github.com/linnemanlabs/beacon/internal/pipeline"
)

func (a *API) handleListEvents(w http.ResponseWriter, r *http.Request) {
	stream := chi.URLParam(r, "stream")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("beacon.stream", stream))

	count := 0
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "count must be an integer")
			return
		}
		count = n
	}

	events, err := a.svc.ListRecent(r.Context(), stream, count)
	if err != nil {
		if errors.Is(err, pipeline.ErrUnknownStream) {
			writeError(w, http.StatusNotFound, "unknown stream")
			return
		}
		a.logger.Error(r.Context(), err, "event listing failed", "stream", stream)
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}
	if events == nil {
		events = []eventbus.Event{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"stream": stream,
		"events": events,
	})
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Stats(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "stats read failed")
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(stats)
}

type flagRequest struct {
	UpdateText     string `json:"update_text"`
	OriginalPrompt string `json:"original_prompt,omitempty"`
}

func (a *API) handleFlagEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req flagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := a.svc.Flag(r.Context(), id, req.UpdateText, req.OriginalPrompt)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyUpdate) {
			writeError(w, http.StatusBadRequest, "update_text is required")
			return
		}
		a.logger.Error(r.Context(), err, "event flag failed", "id", id)
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (a *API) handleArchiveEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	archived, err := a.svc.Archive(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "event archive failed", "id", id)
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"archived": archived, "id": id})
}

func (a *API) handleClearRejected(w http.ResponseWriter, r *http.Request) {
	cleared, err := a.svc.ClearRejected(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "rejected stream clear failed")
		writeError(w, http.StatusServiceUnavailable, "event store unavailable")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"cleared": cleared})
}
