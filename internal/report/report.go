// Package report defines the incident report domain model.
package report

import (
	"errors"
	"strings"
)

// ErrEmpty is returned when a report carries neither text nor attachments.
var ErrEmpty = errors.New("report has no text and no attachments")

// Attachment is decoded attachment metadata. The transport layer handles the
// raw bytes; the pipeline only sees what was uploaded, not its content.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// Report is a free-text incident report as submitted by an operator or the
// public intake form. Latitude/Longitude are device GPS hints, present only
// when the submitting client shared them.
type Report struct {
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	Submitter   string       `json:"submitter,omitempty"`
	Latitude    *float64     `json:"latitude,omitempty"`
	Longitude   *float64     `json:"longitude,omitempty"`
}

// Validate rejects reports with nothing to process.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.Text) == "" && len(r.Attachments) == 0 {
		return ErrEmpty
	}
	return nil
}

// HasGPS reports whether the client supplied both coordinates.
func (r *Report) HasGPS() bool {
	return r.Latitude != nil && r.Longitude != nil
}
