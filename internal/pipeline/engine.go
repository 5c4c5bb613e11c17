package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/linnemanlabs/go-core/log"
)

const (
	classifyTokens  = 256
	summaryTokens   = 512
	evaluateTokens  = 512
	summaryWordsCap = 120
)

// EngineHooks are optional observability callbacks; nil fields are skipped.
type EngineHooks struct {
	OnCompletion func(op string, duration float64, outcome string)
	OnGeocode    func(outcome string)
}

func (h EngineHooks) completion(op string, start time.Time, outcome string) {
	if h.OnCompletion != nil {
		h.OnCompletion(op, time.Since(start).Seconds(), outcome)
	}
}

func (h EngineHooks) geocode(outcome string) {
	if h.OnGeocode != nil {
		h.OnGeocode(outcome)
	}
}

// Engine wraps the external classification, summarization, evaluation, and
// geocoding calls. Every method degrades to a documented default instead of
// failing: an upstream outage must never discard a report that keyword
// evidence already marked as plausible.
type Engine struct {
	provider Provider
	agent    Agent
	logger   log.Logger
	hooks    EngineHooks
}

// NewEngine creates an engine with the given collaborators. The agent may be
// nil, in which case Resolve relies on caller GPS alone.
func NewEngine(provider Provider, agent Agent, logger log.Logger, hooks EngineHooks) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		provider: provider,
		agent:    agent,
		logger:   logger,
		hooks:    hooks,
	}
}

// Classify asks the completion service whether the text is traffic related.
// The default on any failure is accept: the prefilter already found keyword
// evidence, and a transient classifier outage must not silently drop a
// legitimate report. The fallback is always visible in the returned reason.
func (e *Engine) Classify(ctx context.Context, text string) Classification {
	start := time.Now()
	raw, err := e.provider.Complete(ctx, &CompletionRequest{
		System:    classifySystemPrompt,
		Prompt:    classifyPrompt(text),
		MaxTokens: classifyTokens,
	})
	if err != nil {
		e.logger.Warn(ctx, "classifier call failed, accepting on keyword evidence", "error", err)
		e.hooks.completion("classify", start, "error")
		return Classification{Relevant: true, Reason: "classifier unavailable; accepted on keyword match"}
	}
	e.hooks.completion("classify", start, "ok")

	obj, ok := ExtractJSON(raw)
	if !ok {
		e.logger.Warn(ctx, "classifier response unparsable, accepting on keyword evidence", "raw_len", len(raw))
		return Classification{Relevant: true, Reason: "classifier response unparsable; accepted on keyword match"}
	}

	var out struct {
		IsTrafficRelated *bool  `json:"is_traffic_related"`
		Reason           string `json:"reason"`
	}
	if err := json.Unmarshal(obj, &out); err != nil || out.IsTrafficRelated == nil {
		e.logger.Warn(ctx, "classifier verdict missing, accepting on keyword evidence")
		return Classification{Relevant: true, Reason: "classifier verdict missing; accepted on keyword match"}
	}

	reason := out.Reason
	if reason == "" {
		reason = "classified by model"
	}
	return Classification{Relevant: *out.IsTrafficRelated, Reason: reason}
}

// Summarize produces a bounded synopsis of the report. Returns "" on
// failure; Evaluate treats an empty summary as "use the raw text".
func (e *Engine) Summarize(ctx context.Context, text string) string {
	start := time.Now()
	raw, err := e.provider.Complete(ctx, &CompletionRequest{
		System:    summarySystemPrompt,
		Prompt:    summaryPrompt(text),
		MaxTokens: summaryTokens,
	})
	if err != nil {
		e.logger.Warn(ctx, "summarizer call failed", "error", err)
		e.hooks.completion("summarize", start, "error")
		return ""
	}
	e.hooks.completion("summarize", start, "ok")
	return raw
}

// Evaluate asks the completion service for the include flag, severity, and
// final summary. Missing fields fall back to the documented defaults and
// out-of-enum severities are coerced to unknown.
func (e *Engine) Evaluate(ctx context.Context, text, summary string) Evaluation {
	fallback := Evaluation{
		IncludeInContext: true,
		Severity:         SeverityMedium,
		Summary:          summary,
		Reason:           "submitted by operator",
	}
	if fallback.Summary == "" {
		fallback.Summary = text
	}

	start := time.Now()
	raw, err := e.provider.Complete(ctx, &CompletionRequest{
		System:    evaluateSystemPrompt,
		Prompt:    evaluatePrompt(text, summary),
		MaxTokens: evaluateTokens,
	})
	if err != nil {
		e.logger.Warn(ctx, "evaluator call failed, using defaults", "error", err)
		e.hooks.completion("evaluate", start, "error")
		return fallback
	}
	e.hooks.completion("evaluate", start, "ok")

	obj, ok := ExtractJSON(raw)
	if !ok {
		e.logger.Warn(ctx, "evaluator response unparsable, using defaults", "raw_len", len(raw))
		return fallback
	}

	var out struct {
		IncludeInContext *bool   `json:"include_in_context"`
		Severity         *string `json:"severity"`
		Summary          string  `json:"summary"`
		Reason           string  `json:"reason"`
	}
	if err := json.Unmarshal(obj, &out); err != nil {
		e.logger.Warn(ctx, "evaluator response invalid, using defaults", "error", err)
		return fallback
	}

	ev := fallback
	if out.IncludeInContext != nil {
		ev.IncludeInContext = *out.IncludeInContext
	}
	// an absent severity keeps the default; a present one is normalized even
	// when empty, so "" coerces to unknown instead of silently reading medium
	if out.Severity != nil {
		ev.Severity = NormalizeSeverity(*out.Severity)
	}
	if out.Summary != "" {
		ev.Summary = out.Summary
	}
	if out.Reason != "" {
		ev.Reason = out.Reason
	}
	return ev
}

// Resolve asks the geocoding agent for coordinates, falling back to the
// caller-supplied GPS pair when the agent fails or returns nothing usable.
// Returns nil when no coordinates can be determined.
//
// Callers must only invoke Resolve for relevant reports; coordinates of any
// origin are never attached to a rejected report.
func (e *Engine) Resolve(ctx context.Context, text string, userLat, userLon *float64) *Location {
	if e.agent != nil {
		res, err := e.agent.Invoke(ctx, locationInstruction(text))
		switch {
		case err != nil:
			e.logger.Warn(ctx, "geocoding agent call failed", "error", err)
			e.hooks.geocode("error")
		case res.Status != AgentCompleted:
			e.logger.Warn(ctx, "geocoding agent did not complete", "status", string(res.Status))
			e.hooks.geocode("failed")
		default:
			if loc, ok := ExtractCoordinates(res.Output); ok {
				e.hooks.geocode("resolved")
				return loc
			}
			e.logger.Warn(ctx, "no coordinate pattern in agent output", "output_len", len(res.Output))
			e.hooks.geocode("unparsable")
		}
	}

	if userLat != nil && userLon != nil {
		e.hooks.geocode("gps_fallback")
		return &Location{
			Latitude:  strconv.FormatFloat(*userLat, 'f', -1, 64),
			Longitude: strconv.FormatFloat(*userLon, 'f', -1, 64),
		}
	}
	return nil
}

const classifySystemPrompt = `You classify incident reports for a city traffic operations center.
Respond with a JSON object only, no prose, in exactly this shape:
{"is_traffic_related": <bool>, "reason": "<one sentence>"}`

func classifyPrompt(text string) string {
	return fmt.Sprintf("Is the following report about road traffic, transit, or street conditions?\n\nReport:\n%s", text)
}

const summarySystemPrompt = `You summarize traffic incident reports for dispatch dashboards.
Write plain text, no Markdown.`

func summaryPrompt(text string) string {
	return fmt.Sprintf(
		"Summarize this incident report in at most %d words. Cover the location, the cause, affected routes, and a recommended action.\n\nReport:\n%s",
		summaryWordsCap, text,
	)
}

const evaluateSystemPrompt = `You assess summarized traffic incidents for a live operations feed.
Respond with a JSON object only, no prose, in exactly this shape:
{"include_in_context": <bool>, "severity": "low"|"medium"|"high", "summary": "<refined summary>", "reason": "<one sentence>"}`

func evaluatePrompt(text, summary string) string {
	return fmt.Sprintf("Summary:\n%s\n\nOriginal report:\n%s\n\nShould this incident be surfaced to the live context feed, and how severe is it?", summary, text)
}

func locationInstruction(text string) string {
	return fmt.Sprintf(
		"Determine the geographic coordinates of the incident described below. Reply with the coordinates in exactly this form: latitude: <number>, longitude: <number>\n\nIncident:\n%s",
		text,
	)
}
