package pgstore_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/beacon/internal/eventbus"
	"github.com/linnemanlabs/beacon/internal/eventbus/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("BEACON_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("BEACON_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := pgstore.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

// testStream returns a unique stream key so parallel test runs don't collide.
func testStream(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("events:test:%s", ulid.Make())
}

func TestAppendAndReadRecent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	stream := testStream(t)
	t.Cleanup(func() { _, _ = s.Clear(ctx, stream) })

	id1, err := s.Append(ctx, stream, "first report", "op-1", map[string]string{"severity": "low"})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	id2, err := s.Append(ctx, stream, "second report", "", nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("ids not unique: %q", id1)
	}

	events, err := s.ReadRecent(ctx, stream, 10)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Prompt != "second report" {
		t.Errorf("events[0].Prompt = %q, want newest first", events[0].Prompt)
	}
	if events[1].Metadata["severity"] != "low" {
		t.Errorf("metadata = %v, want severity=low", events[1].Metadata)
	}
}

func TestReadRecent_MissingStream(t *testing.T) {
	s := openStore(t)

	events, err := s.ReadRecent(context.Background(), testStream(t), 10)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len = %d, want 0", len(events))
	}
}

func TestDelete_Idempotent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	stream := testStream(t)
	t.Cleanup(func() { _, _ = s.Clear(ctx, stream) })

	id, err := s.Append(ctx, stream, "to be removed", "", nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := s.Delete(ctx, id, stream); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, id, stream); err != nil {
		t.Fatalf("repeat Delete: %v", err)
	}

	n, err := s.Len(ctx, stream)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestClearAndLastID(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	stream := testStream(t)

	last, err := s.LastID(ctx, stream)
	if err != nil {
		t.Fatalf("LastID: %v", err)
	}
	if last != "0-0" {
		t.Errorf("LastID on fresh stream = %q, want 0-0", last)
	}

	var wantLast string
	for i := range 3 {
		wantLast, err = s.Append(ctx, stream, fmt.Sprintf("report %d", i), "", nil)
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	n, err := s.Clear(ctx, stream)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear = %d, want 3", n)
	}

	// last generated id survives the clear
	last, err = s.LastID(ctx, stream)
	if err != nil {
		t.Fatalf("LastID: %v", err)
	}
	if last != wantLast {
		t.Errorf("LastID after clear = %q, want %q", last, wantLast)
	}
}

func TestAppend_TrimsToBound(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	stream := testStream(t)
	t.Cleanup(func() { _, _ = s.Clear(ctx, stream) })

	// going one past the bound must evict exactly the oldest entry
	for i := range eventbus.MaxStreamLen + 1 {
		if _, err := s.Append(ctx, stream, fmt.Sprintf("report %d", i), "", nil); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}

	n, err := s.Len(ctx, stream)
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != eventbus.MaxStreamLen {
		t.Errorf("Len = %d, want %d", n, eventbus.MaxStreamLen)
	}

	events, err := s.ReadRecent(ctx, stream, 1)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if events[0].Prompt != fmt.Sprintf("report %d", eventbus.MaxStreamLen) {
		t.Errorf("newest = %q, want last appended", events[0].Prompt)
	}
}
