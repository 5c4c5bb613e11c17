// Package reportapi exposes the report pipeline over HTTP.
package reportapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/beacon/internal/eventbus"
	"github.com/linnemanlabs/beacon/internal/pipeline"
	"github.com/linnemanlabs/beacon/internal/report"
)

// ReportService defines the business operations reportapi needs.
type ReportService interface {
	Submit(ctx context.Context, r *report.Report) (*pipeline.SubmitResult, error)
	ListRecent(ctx context.Context, stream string, count int) ([]eventbus.Event, error)
	Stats(ctx context.Context) (*pipeline.Stats, error)
	Flag(ctx context.Context, eventID, updateText, originalPrompt string) (*pipeline.FlagResult, error)
	Archive(ctx context.Context, eventID string) (bool, error)
	ClearRejected(ctx context.Context) (int64, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    ReportService
}

// New creates a new API handler.
func New(logger log.Logger, svc ReportService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("report service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router. auth guards the
// mutating routes and may be nil; reads stay open so dashboards can poll
// without credentials. The static /events/rejected route is registered
// before the {id} routes so the bulk clear never matches as an id.
func (a *API) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", a.handleStats)
		r.Get("/events/{stream}", a.handleListEvents)
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/reports", a.handleSubmitReport)
			r.Delete("/events/rejected", a.handleClearRejected)
			r.Post("/events/{id}/flag", a.handleFlagEvent)
			r.Delete("/events/{id}", a.handleArchiveEvent)
		})
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, `{"error":"`+msg+`"}`, status)
}
