// Package memstore provides an in-memory implementation of eventbus.Store.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/beacon/internal/eventbus"
)

type stream struct {
	events []eventbus.Event
	lastMS int64
	seq    int64
	lastID string
}

// Store holds bounded streams in memory. Suitable for dev/testing; state is
// lost on restart.
type Store struct {
	mu      sync.RWMutex
	maxLen  int
	streams map[string]*stream
}

// New initializes a Store bounded at eventbus.MaxStreamLen per stream.
func New() *Store {
	return NewBounded(eventbus.MaxStreamLen)
}

// NewBounded initializes a Store with an explicit per-stream bound.
func NewBounded(maxLen int) *Store {
	return &Store{
		maxLen:  maxLen,
		streams: make(map[string]*stream),
	}
}

// Append adds an event, assigns the next id, and trims the oldest entries
// beyond the bound. IDs follow the <unix-ms>-<seq> shape so ordering and
// format match the Redis-backed store.
func (s *Store) Append(_ context.Context, key, prompt, submitter string, metadata map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.streams[key]
	if st == nil {
		st = &stream{}
		s.streams[key] = st
	}

	now := time.Now()
	ms := now.UnixMilli()
	if ms <= st.lastMS {
		ms = st.lastMS
		st.seq++
	} else {
		st.lastMS = ms
		st.seq = 0
	}
	id := fmt.Sprintf("%d-%d", ms, st.seq)
	st.lastID = id

	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}

	st.events = append(st.events, eventbus.Event{
		ID:        id,
		Prompt:    prompt,
		Timestamp: now.UTC(),
		Submitter: submitter,
		Metadata:  meta,
	})

	if over := len(st.events) - s.maxLen; over > 0 {
		st.events = append([]eventbus.Event(nil), st.events[over:]...)
	}

	return id, nil
}

// ReadRecent returns up to count events, newest first. A missing stream
// yields an empty slice.
func (s *Store) ReadRecent(_ context.Context, key string, count int) ([]eventbus.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.streams[key]
	if st == nil || count <= 0 {
		return []eventbus.Event{}, nil
	}

	n := min(count, len(st.events))
	out := make([]eventbus.Event, 0, n)
	for i := len(st.events) - 1; i >= len(st.events)-n; i-- {
		out = append(out, st.events[i])
	}
	return out, nil
}

// Len returns the stream length; 0 for a missing stream.
func (s *Store) Len(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.streams[key]
	if st == nil {
		return 0, nil
	}
	return int64(len(st.events)), nil
}

// Delete removes the id from each named stream. Streams that do not hold the
// id are untouched; the call succeeds either way.
func (s *Store) Delete(_ context.Context, id string, streams ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range streams {
		st := s.streams[key]
		if st == nil {
			continue
		}
		for i, ev := range st.events {
			if ev.ID == id {
				st.events = append(st.events[:i:i], st.events[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Clear empties the stream and returns the count present before clearing.
func (s *Store) Clear(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.streams[key]
	if st == nil {
		return 0, nil
	}
	n := int64(len(st.events))
	st.events = nil
	return n, nil
}

// LastID returns the last generated id for the stream, "0-0" if nothing has
// ever been appended. The value survives deletes and trims, matching Redis
// stream semantics.
func (s *Store) LastID(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := s.streams[key]
	if st == nil || st.lastID == "" {
		return "0-0", nil
	}
	return st.lastID, nil
}
