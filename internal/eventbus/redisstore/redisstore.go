// Package redisstore implements eventbus.Store on Redis Streams.
//
// XADD with an exact MAXLEN gives atomic id assignment and trim-after-append
// in a single server-side operation, which is what makes this the reference
// backend for the bounded event log.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linnemanlabs/beacon/internal/eventbus"
)

// Store persists events in Redis Streams, one stream per key.
type Store struct {
	rdb    *redis.Client
	maxLen int64
}

// New connects to Redis and returns a ready Store bounded at
// eventbus.MaxStreamLen per stream.
func New(ctx context.Context, addr, password string, db int) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: 10,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Store{rdb: rdb, maxLen: eventbus.MaxStreamLen}, nil
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Append XADDs the event with an exact MAXLEN trim and returns the
// server-assigned id.
func (s *Store) Append(ctx context.Context, stream, prompt, submitter string, metadata map[string]string) (string, error) {
	values := map[string]any{
		"prompt":    prompt,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if submitter != "" {
		values["submitter"] = submitter
	}
	if len(metadata) > 0 {
		meta, err := json.Marshal(metadata)
		if err != nil {
			return "", fmt.Errorf("marshal metadata: %w", err)
		}
		values["metadata"] = string(meta)
	}

	id, err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: s.maxLen,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}
	return id, nil
}

// ReadRecent XREVRANGEs up to count entries, newest first. A stream that
// does not exist yet yields an empty slice.
func (s *Store) ReadRecent(ctx context.Context, stream string, count int) ([]eventbus.Event, error) {
	if count <= 0 {
		return []eventbus.Event{}, nil
	}

	msgs, err := s.rdb.XRevRangeN(ctx, stream, "+", "-", int64(count)).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", stream, err)
	}

	events := make([]eventbus.Event, 0, len(msgs))
	for _, msg := range msgs {
		events = append(events, decodeMessage(msg))
	}
	return events, nil
}

// Len returns XLEN; 0 for a missing stream.
func (s *Store) Len(ctx context.Context, stream string) (int64, error) {
	n, err := s.rdb.XLen(ctx, stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen %s: %w", stream, err)
	}
	return n, nil
}

// Delete XDELs the id from each named stream. XDEL on a missing id or
// missing stream is a no-op, which gives us idempotence for free.
func (s *Store) Delete(ctx context.Context, id string, streams ...string) error {
	for _, stream := range streams {
		if err := s.rdb.XDel(ctx, stream, id).Err(); err != nil {
			return fmt.Errorf("xdel %s %s: %w", stream, id, err)
		}
	}
	return nil
}

// Clear drops the whole stream and returns the entry count immediately
// before deletion. XLEN and DEL run in one MULTI/EXEC so the count is exact.
func (s *Store) Clear(ctx context.Context, stream string) (int64, error) {
	pipe := s.rdb.TxPipeline()
	lenCmd := pipe.XLen(ctx, stream)
	pipe.Del(ctx, stream)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("clear %s: %w", stream, err)
	}
	return lenCmd.Val(), nil
}

// LastID returns the stream's last generated id, "0-0" when the stream has
// never existed.
func (s *Store) LastID(ctx context.Context, stream string) (string, error) {
	info, err := s.rdb.XInfoStream(ctx, stream).Result()
	if err != nil {
		if strings.Contains(err.Error(), "no such key") {
			return "0-0", nil
		}
		return "", fmt.Errorf("xinfo %s: %w", stream, err)
	}
	return info.LastGeneratedID, nil
}

func decodeMessage(msg redis.XMessage) eventbus.Event {
	ev := eventbus.Event{ID: msg.ID}

	if v, ok := msg.Values["prompt"].(string); ok {
		ev.Prompt = v
	}
	if v, ok := msg.Values["submitter"].(string); ok {
		ev.Submitter = v
	}
	if v, ok := msg.Values["timestamp"].(string); ok {
		if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			ev.Timestamp = ts
		}
	}
	if v, ok := msg.Values["metadata"].(string); ok && v != "" {
		var meta map[string]string
		if err := json.Unmarshal([]byte(v), &meta); err == nil {
			ev.Metadata = meta
		}
	}
	return ev
}
