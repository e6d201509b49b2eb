package domain

import (
	"log/slog"
	"time"
)

// LogRecord is a diagnostic message captured during a command's execution.
// It is buffered unformatted; rendering happens only in the formatter.
// Args holds alternating key/value pairs as emitted at the call site.
type LogRecord struct {
	Level   slog.Level `json:"level"`
	Module  string     `json:"module"`
	Message string     `json:"message"`
	Args    []any      `json:"args,omitempty"`
}

// Span is one traced command interval. Level is the nesting depth at the
// time the command's before-event was observed: an aspirate inside a mix
// inside a transfer sits at level 2. Logs contains the records emitted
// strictly between the span's before and matching after events, in
// emission order.
type Span struct {
	Level   int            `json:"level"`
	Payload map[string]any `json:"payload"`
	Logs    []LogRecord    `json:"logs"`
}

// RunLog is the ordered, append-only sequence of Spans produced by one
// simulation run. It is owned by the tracer while the run is in flight and
// handed to the caller as a snapshot afterwards.
type RunLog []Span

// RunRecord is a completed simulation run as persisted by a RunStore.
type RunRecord struct {
	ID        string          `json:"id"`
	FileName  string          `json:"fileName"`
	CreatedAt time.Time       `json:"createdAt"`
	RunLog    RunLog          `json:"runLog"`
	Bundle    *BundleContents `json:"bundle,omitempty"`
}
