package audit

import (
	"context"
	"time"
)

// Actions recorded against annotations.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Record is one audit entry.
type Record struct {
	UserID       string    `json:"userId"`
	AnnotationID string    `json:"annotationId"`
	Action       string    `json:"action"`
	Timestamp    time.Time `json:"timestamp"`
}

// Recorder accepts audit records without blocking the caller.
type Recorder interface {
	// Submit hands off a record for asynchronous persistence. It must
	// never block; it reports whether the record was accepted.
	Submit(rec Record) bool
}

// Sink durably stores audit records. Implementations are driven from a
// single worker goroutine, so Write is never called concurrently.
type Sink interface {
	Write(ctx context.Context, rec Record) error
	Close() error
}

// NopSink discards all records. Useful for tests and for running
// without auditing.
type NopSink struct{}

// Write implements Sink.
func (NopSink) Write(context.Context, Record) error { return nil }

// Close implements Sink.
func (NopSink) Close() error { return nil }
