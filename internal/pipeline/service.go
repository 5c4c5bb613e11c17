package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/beacon/internal/eventbus"
	"github.com/linnemanlabs/beacon/internal/report"
)

// ErrUnknownStream is returned for list requests naming a stream outside
// {audit, memory, rejected}.
var ErrUnknownStream = errors.New("unknown stream")

// ErrEmptyUpdate is returned when a flag operation carries no update text.
var ErrEmptyUpdate = errors.New("update text is required")

// MaxListCount caps a single recent-events read.
const MaxListCount = 100

const defaultListCount = 10

// SubmitResult is the outcome of running one report through the pipeline.
// Event ids are empty when the corresponding store write failed or was not
// applicable; the evaluation fields are always populated.
type SubmitResult struct {
	ReportID         string   `json:"report_id"`
	IsRelevant       bool     `json:"is_relevant"`
	RelevanceReason  string   `json:"relevance_reason"`
	IncludeInContext bool     `json:"include_in_context"`
	Severity         Severity `json:"severity"`
	Summary          string   `json:"summary"`
	Reason           string   `json:"reason"`
	AuditEventID     string   `json:"audit_event_id,omitempty"`
	RoutedEventID    string   `json:"routed_event_id,omitempty"`
	RoutedStream     string   `json:"routed_stream,omitempty"`
}

// Stats summarizes the event streams.
type Stats struct {
	TotalEvents    int64  `json:"total_events"`
	MemoryEvents   int64  `json:"memory_events"`
	RejectedEvents int64  `json:"rejected_events"`
	LastEventID    string `json:"last_event_id"`
}

// FlagResult holds the ids of the linked follow-up events.
type FlagResult struct {
	UpdateEventID string `json:"update_event_id"`
	MemoryEventID string `json:"memory_event_id"`
}

// Notifier delivers out-of-band notifications for noteworthy reports.
type Notifier interface {
	Send(ctx context.Context, res *SubmitResult) error
}

// Service is the business boundary for report processing and event access.
type Service struct {
	store    eventbus.Store
	engine   *Engine
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
}

// NewService creates a report service. notifier may be nil.
func NewService(store eventbus.Store, engine *Engine, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		engine:   engine,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// Submit runs one report through the full pipeline: validate, prefilter,
// classify, summarize, evaluate, resolve, route, append. Stages run
// sequentially because each consumes the previous stage's output; store
// writes are best-effort and never fail the submission.
func (s *Service) Submit(ctx context.Context, r *report.Report) (*SubmitResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	res := &SubmitResult{ReportID: ulid.Make().String()}

	L := s.logger.With("report_id", res.ReportID)

	var loc *Location
	if !Prefilter(r.Text) {
		s.metrics.PrefilterTotal.WithLabelValues("reject").Inc()
		res.IsRelevant = false
		res.RelevanceReason = "No traffic keywords detected"
		res.IncludeInContext = false
		res.Severity = SeverityIrrelevant
		res.Summary = r.Text
		res.Reason = "rejected by keyword prefilter"
	} else {
		s.metrics.PrefilterTotal.WithLabelValues("accept").Inc()

		cls := s.engine.Classify(ctx, r.Text)
		res.IsRelevant = cls.Relevant
		res.RelevanceReason = cls.Reason

		if cls.Relevant {
			summary := s.engine.Summarize(ctx, r.Text)
			ev := s.engine.Evaluate(ctx, r.Text, summary)
			res.IncludeInContext = ev.IncludeInContext
			res.Severity = ev.Severity
			res.Summary = ev.Summary
			res.Reason = ev.Reason

			loc = s.engine.Resolve(ctx, r.Text, r.Latitude, r.Longitude)
		} else {
			res.IncludeInContext = false
			res.Severity = SeverityIrrelevant
			res.Summary = r.Text
			res.Reason = cls.Reason
		}
	}

	target := Route(res.IsRelevant, res.IncludeInContext)
	s.metrics.RoutesTotal.WithLabelValues(target.String()).Inc()

	meta := s.buildMetadata(r, res, loc)

	res.AuditEventID = s.append(ctx, L, eventbus.StreamAudit, r, meta)

	switch target {
	case TargetMemory:
		res.RoutedStream = "memory"
		res.RoutedEventID = s.append(ctx, L, eventbus.StreamMemory, r, meta)
	case TargetRejected:
		res.RoutedStream = "rejected"
		res.RoutedEventID = s.append(ctx, L, eventbus.StreamRejected, r, meta)
	case TargetAuditOnly:
		// relevant but excluded: audit entry only
	}

	s.metrics.SubmitsTotal.WithLabelValues(target.String()).Inc()
	s.metrics.SubmitDuration.WithLabelValues(target.String()).Observe(time.Since(start).Seconds())

	if s.notifier != nil && res.IsRelevant && res.Severity == SeverityHigh {
		if err := s.notifier.Send(ctx, res); err != nil {
			L.Warn(ctx, "notification failed", "error", err)
		}
	}

	L.Info(ctx, "report processed",
		"relevant", res.IsRelevant,
		"severity", string(res.Severity),
		"target", target.String(),
		"audit_event_id", res.AuditEventID,
		"routed_event_id", res.RoutedEventID,
	)
	return res, nil
}

// append writes one event, logging and swallowing store failures. Returns
// the assigned id, or "" when the write failed.
func (s *Service) append(ctx context.Context, L log.Logger, stream string, r *report.Report, meta map[string]string) string {
	id, err := s.store.Append(ctx, stream, r.Text, r.Submitter, meta)
	if err != nil {
		L.Warn(ctx, "event store append failed", "stream", stream, "error", err)
		s.metrics.StoreAppendsTotal.WithLabelValues(stream, "error").Inc()
		return ""
	}
	s.metrics.StoreAppendsTotal.WithLabelValues(stream, "ok").Inc()
	return id
}

// buildMetadata assembles the stored event metadata. Coordinates are only
// attached to relevant reports; for rejected ones even caller-supplied GPS
// is withheld, a data-minimization rule rather than an omission.
func (s *Service) buildMetadata(r *report.Report, res *SubmitResult, loc *Location) map[string]string {
	meta := map[string]string{
		"report_id":        res.ReportID,
		"relevant":         strconv.FormatBool(res.IsRelevant),
		"relevance_reason": res.RelevanceReason,
		"severity":         string(res.Severity),
		"summary":          res.Summary,
		"reason":           res.Reason,
	}
	if len(r.Attachments) > 0 {
		meta["attachments"] = strconv.Itoa(len(r.Attachments))
		if enc, err := json.Marshal(r.Attachments); err == nil {
			meta["attachment_files"] = string(enc)
		}
	}
	if res.IsRelevant && loc != nil {
		meta["latitude"] = loc.Latitude
		meta["longitude"] = loc.Longitude
	}
	return meta
}

// ListRecent returns up to count recent events from the named stream,
// newest first. count is clamped to 1..MaxListCount.
func (s *Service) ListRecent(ctx context.Context, stream string, count int) ([]eventbus.Event, error) {
	key, ok := streamKey(stream)
	if !ok {
		return nil, ErrUnknownStream
	}
	if count <= 0 {
		count = defaultListCount
	}
	if count > MaxListCount {
		count = MaxListCount
	}
	return s.store.ReadRecent(ctx, key, count)
}

// Stats reports stream lengths and the audit stream's last generated id.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	total, err := s.store.Len(ctx, eventbus.StreamAudit)
	if err != nil {
		return nil, err
	}
	memory, err := s.store.Len(ctx, eventbus.StreamMemory)
	if err != nil {
		return nil, err
	}
	rejected, err := s.store.Len(ctx, eventbus.StreamRejected)
	if err != nil {
		return nil, err
	}
	last, err := s.store.LastID(ctx, eventbus.StreamAudit)
	if err != nil {
		return nil, err
	}
	return &Stats{
		TotalEvents:    total,
		MemoryEvents:   memory,
		RejectedEvents: rejected,
		LastEventID:    last,
	}, nil
}

// Flag records an operator follow-up as new linked events in audit and
// memory. The original event is referenced by id, never mutated.
func (s *Service) Flag(ctx context.Context, eventID, updateText, originalPrompt string) (*FlagResult, error) {
	if updateText == "" {
		return nil, ErrEmptyUpdate
	}

	meta := map[string]string{
		"update":       "true",
		"ref_event_id": eventID,
	}
	if originalPrompt != "" {
		meta["original_prompt"] = originalPrompt
	}

	updateID, err := s.store.Append(ctx, eventbus.StreamAudit, updateText, "", meta)
	if err != nil {
		return nil, err
	}
	memoryID, err := s.store.Append(ctx, eventbus.StreamMemory, updateText, "", meta)
	if err != nil {
		return nil, err
	}
	return &FlagResult{UpdateEventID: updateID, MemoryEventID: memoryID}, nil
}

// Archive removes the id from the audit and memory streams. Removal is
// idempotent: archiving an unknown id succeeds without altering anything.
// There is deliberately no targeted delete from rejected; that stream is
// bulk-cleared only.
func (s *Service) Archive(ctx context.Context, eventID string) (bool, error) {
	if err := s.store.Delete(ctx, eventID, eventbus.StreamAudit, eventbus.StreamMemory); err != nil {
		return false, err
	}
	return true, nil
}

// ClearRejected empties the rejected stream and returns how many entries it
// held.
func (s *Service) ClearRejected(ctx context.Context) (int64, error) {
	return s.store.Clear(ctx, eventbus.StreamRejected)
}

func streamKey(name string) (string, bool) {
	switch name {
	case "audit":
		return eventbus.StreamAudit, true
	case "memory":
		return eventbus.StreamMemory, true
	case "rejected":
		return eventbus.StreamRejected, true
	default:
		return "", false
	}
}
