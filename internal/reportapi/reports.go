package reportapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/beacon/internal/report"
)

type submitRequest struct {
	Text        string              `json:"text"`
	Submitter   string              `json:"submitter,omitempty"`
	Latitude    *float64            `json:"latitude,omitempty"`
	Longitude   *float64            `json:"longitude,omitempty"`
	Attachments []report.Attachment `json:"attachments,omitempty"`
}

func (a *API) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	res, err := a.svc.Submit(r.Context(), &report.Report{
		Text:        req.Text,
		Submitter:   req.Submitter,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Attachments: req.Attachments,
	})
	if err != nil {
		if errors.Is(err, report.ErrEmpty) {
			writeError(w, http.StatusBadRequest, "report has no content")
			return
		}
		a.logger.Error(r.Context(), err, "report submission failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("beacon.report.id", res.ReportID),
		attribute.Bool("beacon.report.relevant", res.IsRelevant),
		attribute.String("beacon.report.severity", string(res.Severity)),
	)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}
