package trace

import (
	"context"
	"log/slog"
	"sync"

	"github.com/wetbench/labsim/pkg/domain"
)

// ModuleKey is the attribute key the interceptor recognizes as the emitting
// module's name. Loggers handed to engine code carry it via Logger.With.
const ModuleKey = "module"

// buffer queues log records between drains. Enqueue is safe against
// concurrent emitters and against reentrant emission from inside a
// command's own execution; drain is called by the single tracer consumer.
type buffer struct {
	mu      sync.Mutex
	records []domain.LogRecord
	closed  bool
}

func (b *buffer) enqueue(rec domain.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.records = append(b.records, rec)
}

func (b *buffer) drain() []domain.LogRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.records
	b.records = nil
	return out
}

// close stops the buffer from accepting records. Anything still queued is
// discarded: a tracer torn down mid-run does not attribute logs to spans
// it never closed.
func (b *buffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.records = nil
}

// interceptor is a slog.Handler that captures records at or above a minimum
// severity into the tracer's buffer without formatting them.
type interceptor struct {
	min   slog.Level
	buf   *buffer
	attrs []slog.Attr
	group string
}

var _ slog.Handler = (*interceptor)(nil)

func (h *interceptor) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

func (h *interceptor) Handle(_ context.Context, r slog.Record) error {
	rec := domain.LogRecord{
		Level:   r.Level,
		Message: r.Message,
	}

	collect := func(a slog.Attr) {
		if a.Key == ModuleKey && h.group == "" {
			if s, ok := a.Value.Any().(string); ok {
				rec.Module = s
				return
			}
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		rec.Args = append(rec.Args, key, a.Value.Any())
	}

	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	h.buf.enqueue(rec)
	return nil
}

func (h *interceptor) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &clone
}

func (h *interceptor) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		clone.group = h.group + "." + name
	} else {
		clone.group = name
	}
	return &clone
}

// teeHandler fans a record out to every wrapped handler that has it
// enabled. It lets one logger serve both the operator's console and the
// run-log interceptor.
type teeHandler struct {
	handlers []slog.Handler
}

// NewTee combines handlers into one. Nil entries are skipped.
func NewTee(handlers ...slog.Handler) slog.Handler {
	kept := make([]slog.Handler, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			kept = append(kept, h)
		}
	}
	return &teeHandler{handlers: kept}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range t.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithAttrs(attrs)
	}
	return &teeHandler{handlers: out}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(t.handlers))
	for i, h := range t.handlers {
		out[i] = h.WithGroup(name)
	}
	return &teeHandler{handlers: out}
}
