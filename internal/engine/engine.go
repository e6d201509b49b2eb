// Package engine provides the two protocol execution engines. Both
// interpret JSON instruction protocols through a shared interpreter and
// delegate source-form protocols to a caller-registered protocol function;
// they differ in the context conventions they expect and in what the
// dispatcher does with their results.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
)

// Option configures an engine.
type Option func(*base)

// WithProtocolFunc registers the body used to execute source-form
// protocols.
func WithProtocolFunc(fn simulation.ProtocolFunc) Option {
	return func(b *base) { b.fn = fn }
}

// WithLogger sets the engine's own logger, separate from the context's.
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) { b.logger = logger }
}

type base struct {
	fn     simulation.ProtocolFunc
	logger *slog.Logger
}

func newBase(opts []Option) base {
	b := base{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) execute(ctx context.Context, proto *domain.Protocol, sim *simulation.Context) error {
	switch proto.Kind {
	case domain.KindJSON:
		return runInstructions(ctx, proto, sim)
	case domain.KindSource, domain.KindBundle:
		if b.fn == nil {
			return &domain.ExecutionError{Err: fmt.Errorf("no protocol function registered for source protocol %q", proto.FileName)}
		}
		b.logger.Debug("executing source protocol", "file", proto.FileName, "apiLevel", proto.APILevel)
		if err := b.fn(sim); err != nil {
			if _, ok := err.(*domain.ExecutionError); ok {
				return err
			}
			return &domain.ExecutionError{Err: err}
		}
		return nil
	default:
		return &domain.ExecutionError{Err: fmt.Errorf("unsupported protocol kind %q", proto.Kind)}
	}
}

// Current is the current-generation engine.
type Current struct {
	base
}

// NewCurrent builds the current-generation engine.
func NewCurrent(opts ...Option) *Current {
	return &Current{base: newBase(opts)}
}

// Execute runs the protocol to completion against the context.
func (e *Current) Execute(ctx context.Context, proto *domain.Protocol, sim *simulation.Context) error {
	return e.execute(ctx, proto, sim)
}

// Legacy is the previous-generation engine. It expects a context built
// with legacy text conventions and never produces bundles.
type Legacy struct {
	base
}

// NewLegacy builds the legacy engine.
func NewLegacy(opts ...Option) *Legacy {
	return &Legacy{base: newBase(opts)}
}

// Execute runs the protocol to completion against the context.
func (e *Legacy) Execute(ctx context.Context, proto *domain.Protocol, sim *simulation.Context) error {
	return e.execute(ctx, proto, sim)
}
