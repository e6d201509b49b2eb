package trace

import (
	"log/slog"
	"sync"

	"github.com/wetbench/labsim/pkg/broker"
	"github.com/wetbench/labsim/pkg/domain"
)

// Tracer accumulates the run log for a single simulation run. It subscribes
// exactly once to the given command topic and ignores all other traffic on
// the bus.
type Tracer struct {
	mu    sync.Mutex
	depth int
	spans domain.RunLog

	buf     *buffer
	handler slog.Handler

	releaseOnce sync.Once
	unsubscribe func()
}

// New attaches a tracer to the bus's command topic. If level is LevelNone
// the log interceptor is not created and LogHandler returns nil.
func New(bus *broker.Broker, topic string, level Level) *Tracer {
	t := &Tracer{}

	if level != LevelNone {
		t.buf = &buffer{}
		t.handler = &interceptor{min: slog.Level(level), buf: t.buf}
	}

	t.unsubscribe = bus.Subscribe(topic, t.onCommand)
	return t
}

// LogHandler returns the severity-filtered slog.Handler whose records are
// drained into spans, or nil when interception is disabled. Route the
// execution context's logger through it (see NewTee) to capture diagnostics
// in the run log.
func (t *Tracer) LogHandler() slog.Handler {
	return t.handler
}

// RunLog returns a snapshot of the spans recorded so far. It is valid both
// incrementally during a run, for diagnostics after a failure, and as the
// frozen result once the run has completed.
func (t *Tracer) RunLog() domain.RunLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(domain.RunLog, len(t.spans))
	copy(out, t.spans)
	return out
}

// Release detaches the tracer from the bus and the interceptor from its
// buffer. It is idempotent: releasing twice neither errors nor re-drains
// already-drained log entries. Logs buffered but not yet drained at release
// time are discarded.
func (t *Tracer) Release() {
	t.releaseOnce.Do(func() {
		t.unsubscribe()
		if t.buf != nil {
			t.buf.close()
		}
	})
}

func (t *Tracer) onCommand(msg any) {
	ev, ok := msg.(domain.LifecycleEvent)
	if !ok {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch ev.Phase {
	case domain.PhaseBefore:
		t.spans = append(t.spans, domain.Span{
			Level:   t.depth,
			Payload: ev.Payload,
			Logs:    []domain.LogRecord{},
		})
		t.depth++
	case domain.PhaseAfter:
		// Drain even for an unmatched after: logs attach to whatever span
		// is currently last, best-effort.
		if t.buf != nil {
			drained := t.buf.drain()
			if n := len(t.spans); n > 0 {
				last := &t.spans[n-1]
				last.Logs = append(last.Logs, drained...)
			}
		}
		if t.depth > 0 {
			t.depth--
		}
	}
}
