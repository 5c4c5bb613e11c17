// Package eventbus defines the bounded multi-stream event log that the
// report pipeline writes into and the dashboard endpoints read from. It
// declares the Event model, the fixed stream keys, and the Store interface;
// implementations live in the memstore, redisstore, and pgstore subpackages.
package eventbus

import (
	"context"
	"time"
)

// Stream keys. Roles are fixed: audit holds every processed report, memory
// holds reports worth surfacing to downstream context, rejected holds the
// rest. A report lands in audit plus at most one of the other two.
const (
	StreamAudit    = "events:audit"
	StreamMemory   = "events:memory"
	StreamRejected = "events:rejected"
)

// MaxStreamLen is the bound on every stream. Appends beyond it evict the
// oldest entries first.
const MaxStreamLen = 1000

// Event is one immutable entry in a stream. IDs are stream-local, opaque to
// callers, and strictly increasing in generation order within a stream.
type Event struct {
	ID        string            `json:"id"`
	Prompt    string            `json:"prompt"`
	Timestamp time.Time         `json:"timestamp"`
	Submitter string            `json:"submitter,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Store is the persistence interface for the bounded event log.
//
// Append must be atomic under concurrent writers: no two appenders receive
// the same id and the post-append trim keeps the stream at MaxStreamLen.
// ReadRecent returns newest first and an empty slice (not an error) for a
// stream that does not exist yet. Delete is idempotent and best-effort per
// stream. Clear returns the entry count immediately before clearing.
// No cross-stream atomicity is provided.
type Store interface {
	Append(ctx context.Context, stream, prompt, submitter string, metadata map[string]string) (string, error)
	ReadRecent(ctx context.Context, stream string, count int) ([]Event, error)
	Len(ctx context.Context, stream string) (int64, error)
	Delete(ctx context.Context, id string, streams ...string) error
	Clear(ctx context.Context, stream string) (int64, error)
	LastID(ctx context.Context, stream string) (string, error)
}
