// Package slack sends high-severity report notifications to Slack via
// incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/linnemanlabs/beacon/internal/pipeline"
)

const (
	maxSummaryLen = 3000
	httpTimeout   = 10 * time.Second
)

// Notifier posts submit results to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
	}
}

// Send posts a submit result to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Send(ctx context.Context, res *pipeline.SubmitResult) error {
	if n.webhookURL == "" {
		return nil
	}

	msg := buildMessage(res)

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func buildMessage(res *pipeline.SubmitResult) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(res),
			{"type": "divider"},
			fieldsBlock(res),
			{"type": "divider"},
			summaryBlock(res),
			{"type": "divider"},
			contextBlock(res),
		},
	}
}

func headerBlock(res *pipeline.SubmitResult) map[string]any {
	text := fmt.Sprintf("%s Incident Report: %s severity", severityEmoji(res.Severity), res.Severity)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(res *pipeline.SubmitResult) map[string]any {
	routed := res.RoutedStream
	if routed == "" {
		routed = "audit only"
	}

	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", res.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Routed to:* %s", routed),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*In context:* %t", res.IncludeInContext),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Reason:* %s", res.Reason),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func summaryBlock(res *pipeline.SubmitResult) map[string]any {
	text := truncate(res.Summary, maxSummaryLen)
	if text == "" {
		text = "_No summary available._"
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Summary*\n\n%s", text),
		},
	}
}

func contextBlock(res *pipeline.SubmitResult) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("beacon • report %s • %s", res.ReportID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func severityEmoji(severity pipeline.Severity) string {
	switch severity {
	case pipeline.SeverityHigh:
		return "\U0001f534" // red circle
	case pipeline.SeverityMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
