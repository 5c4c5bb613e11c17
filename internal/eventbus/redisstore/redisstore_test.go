package redisstore

import (
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestDecodeMessage_FullEvent(t *testing.T) {
	t.Parallel()

	msg := redis.XMessage{
		ID: "1700000000000-0",
		Values: map[string]any{
			"prompt":    "Accident on I-35 near downtown",
			"submitter": "op-7",
			"timestamp": "2026-08-31T12:00:00.5Z",
			"metadata":  `{"severity":"high","relevant":"true"}`,
		},
	}

	ev := decodeMessage(msg)

	if ev.ID != "1700000000000-0" {
		t.Errorf("ID = %q, want 1700000000000-0", ev.ID)
	}
	if ev.Prompt != "Accident on I-35 near downtown" {
		t.Errorf("Prompt = %q", ev.Prompt)
	}
	if ev.Submitter != "op-7" {
		t.Errorf("Submitter = %q, want op-7", ev.Submitter)
	}
	want := time.Date(2026, 8, 31, 12, 0, 0, 500000000, time.UTC)
	if !ev.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", ev.Timestamp, want)
	}
	if ev.Metadata["severity"] != "high" {
		t.Errorf("Metadata[severity] = %q, want high", ev.Metadata["severity"])
	}
	if ev.Metadata["relevant"] != "true" {
		t.Errorf("Metadata[relevant] = %q, want true", ev.Metadata["relevant"])
	}
}

func TestDecodeMessage_MinimalEvent(t *testing.T) {
	t.Parallel()

	msg := redis.XMessage{
		ID:     "1700000000001-0",
		Values: map[string]any{"prompt": "stalled truck"},
	}

	ev := decodeMessage(msg)

	if ev.Prompt != "stalled truck" {
		t.Errorf("Prompt = %q", ev.Prompt)
	}
	if ev.Submitter != "" {
		t.Errorf("Submitter = %q, want empty", ev.Submitter)
	}
	if ev.Metadata != nil {
		t.Errorf("Metadata = %v, want nil", ev.Metadata)
	}
	if !ev.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", ev.Timestamp)
	}
}

func TestDecodeMessage_IgnoresBadFields(t *testing.T) {
	t.Parallel()

	msg := redis.XMessage{
		ID: "1700000000002-0",
		Values: map[string]any{
			"prompt":    "lane closure",
			"timestamp": "not-a-time",
			"metadata":  "{not json",
		},
	}

	ev := decodeMessage(msg)

	if ev.Prompt != "lane closure" {
		t.Errorf("Prompt = %q", ev.Prompt)
	}
	if !ev.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero for unparsable value", ev.Timestamp)
	}
	if ev.Metadata != nil {
		t.Errorf("Metadata = %v, want nil for unparsable value", ev.Metadata)
	}
}
