// Package pgstore provides a PostgreSQL implementation of eventbus.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/beacon/internal/eventbus"
)

var tracer = otel.Tracer("github.com/linnemanlabs/beacon/internal/eventbus/pgstore")

//go:embed schema.sql
var schema string

// Store persists bounded event streams in PostgreSQL. The append-then-trim
// sequence runs inside one transaction, which serializes concurrent writers
// per stream and keeps the bound exact.
type Store struct {
	pool   *pgxpool.Pool
	maxLen int
}

// New connects to PostgreSQL, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool, maxLen: eventbus.MaxStreamLen}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Append inserts the event, derives its id from the assigned sequence, trims
// the stream to the bound, and records the last generated id.
func (s *Store) Append(ctx context.Context, stream, prompt, submitter string, metadata map[string]string) (string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Append", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "INSERT"),
	))
	defer span.End()

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	if metadata == nil {
		metaJSON = []byte("{}")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is harmless

	now := time.Now().UTC()

	var seq int64
	err = tx.QueryRow(ctx,
		`INSERT INTO events (stream, prompt, submitter, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING seq`,
		stream, prompt, submitter, metaJSON, now,
	).Scan(&seq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("insert event: %w", err)
	}

	// ids carry the same <ms>-<seq> shape as the Redis backend; seq is the
	// authoritative order, the millisecond prefix is for operators.
	id := fmt.Sprintf("%d-%d", now.UnixMilli(), seq)

	if _, err := tx.Exec(ctx, `UPDATE events SET event_id = $1 WHERE seq = $2`, id, seq); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("set event id: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO stream_meta (stream, last_id) VALUES ($1, $2)
		 ON CONFLICT (stream) DO UPDATE SET last_id = EXCLUDED.last_id`,
		stream, id,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("record last id: %w", err)
	}

	// trim to bound: drop everything at or below the cutoff row. The
	// subquery yields no row while the stream is under the bound, and
	// `seq <= NULL` deletes nothing.
	if _, err := tx.Exec(ctx,
		`DELETE FROM events WHERE stream = $1 AND seq <= (
			SELECT seq FROM events WHERE stream = $1
			ORDER BY seq DESC OFFSET $2 LIMIT 1
		)`,
		stream, s.maxLen,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("trim stream: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// ReadRecent returns up to count events, newest first.
func (s *Store) ReadRecent(ctx context.Context, stream string, count int) ([]eventbus.Event, error) {
	ctx, span := tracer.Start(ctx, "pgstore.ReadRecent", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	if count <= 0 {
		return []eventbus.Event{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT event_id, prompt, submitter, metadata, created_at
		 FROM events WHERE stream = $1 ORDER BY seq DESC LIMIT $2`,
		stream, count,
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []eventbus.Event{}
	for rows.Next() {
		var (
			ev       eventbus.Event
			metaJSON []byte
		)
		if err := rows.Scan(&ev.ID, &ev.Prompt, &ev.Submitter, &metaJSON, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(metaJSON) > 0 {
			var meta map[string]string
			if err := json.Unmarshal(metaJSON, &meta); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
			if len(meta) > 0 {
				ev.Metadata = meta
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Len returns the stream length; 0 for an unknown stream.
func (s *Store) Len(ctx context.Context, stream string) (int64, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Len", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE stream = $1`, stream).Scan(&n); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// Delete removes the id from each named stream; absent ids are a no-op.
func (s *Store) Delete(ctx context.Context, id string, streams ...string) error {
	ctx, span := tracer.Start(ctx, "pgstore.Delete", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	if _, err := s.pool.Exec(ctx,
		`DELETE FROM events WHERE event_id = $1 AND stream = ANY($2)`,
		id, streams,
	); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Clear drops the whole stream and returns the number of rows removed.
func (s *Store) Clear(ctx context.Context, stream string) (int64, error) {
	ctx, span := tracer.Start(ctx, "pgstore.Clear", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "DELETE"),
	))
	defer span.End()

	tag, err := s.pool.Exec(ctx, `DELETE FROM events WHERE stream = $1`, stream)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("clear stream: %w", err)
	}
	return tag.RowsAffected(), nil
}

// LastID returns the stream's last generated id, "0-0" when nothing has ever
// been appended.
func (s *Store) LastID(ctx context.Context, stream string) (string, error) {
	ctx, span := tracer.Start(ctx, "pgstore.LastID", trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", "SELECT"),
	))
	defer span.End()

	var last string
	err := s.pool.QueryRow(ctx, `SELECT last_id FROM stream_meta WHERE stream = $1`, stream).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "0-0", nil
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("query last id: %w", err)
	}
	return last, nil
}
