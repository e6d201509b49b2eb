// Package dispatch selects and drives a protocol execution engine. It owns
// the run's execution context, the tracer's attachment and teardown, and
// the post-run bundle decision.
package dispatch

import (
	"context"
	"io"
	"log/slog"

	"github.com/wetbench/labsim/internal/config"
	"github.com/wetbench/labsim/internal/engine"
	"github.com/wetbench/labsim/pkg/bundle"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/ports"
	"github.com/wetbench/labsim/pkg/simulation"
	"github.com/wetbench/labsim/pkg/trace"
)

// Result is a completed (or partially completed) run. On an execution
// failure RunLog still holds the spans recorded up to the failure.
type Result struct {
	RunLog domain.RunLog
	Bundle *domain.BundleContents
}

// Dispatcher runs protocols according to the global flags. One dispatcher
// may serve many runs; each run gets its own context and tracer.
type Dispatcher struct {
	flags     config.Flags
	level     trace.Level
	logger    *slog.Logger
	fn        simulation.ProtocolFunc
	propagate bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogLevel sets the severity captured into run logs. Defaults to
// warning; trace.LevelNone disables interception.
func WithLogLevel(level trace.Level) Option {
	return func(d *Dispatcher) { d.level = level }
}

// WithLogger sets the operator-facing logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithProtocolFunc registers the body executed for source-form protocols.
func WithProtocolFunc(fn simulation.ProtocolFunc) Option {
	return func(d *Dispatcher) { d.fn = fn }
}

// WithPropagateLogs also forwards protocol diagnostics to the operator
// logger instead of capturing them into the run log only.
func WithPropagateLogs(propagate bool) Option {
	return func(d *Dispatcher) { d.propagate = propagate }
}

// New builds a dispatcher for the given flags.
func New(flags config.Flags, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		flags: flags,
		level: trace.LevelWarning,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return d
}

// Run validates the protocol against the flags, executes it on the
// selected engine, and returns the frozen run log plus the bundle contents
// when applicable. On an ExecutionError the returned Result carries the
// partial run log; on ParseError or ConfigurationError no tracer was ever
// attached and the Result is nil.
func (d *Dispatcher) Run(ctx context.Context, proto *domain.Protocol) (*Result, error) {
	if !d.flags.UseProtocolAPIv2 {
		return d.runLegacy(ctx, proto)
	}

	if proto.Kind != domain.KindJSON && proto.APILevel == "1" && !d.flags.EnableBackcompat {
		return nil, &domain.ConfigurationError{
			Reason: "this protocol targets API V1 but the simulator is set to API V2; " +
				"set apiLevel to '2' in the protocol metadata if it is actually a V2 protocol, " +
				"or disable the useProtocolApi2 setting",
		}
	}

	sim := simulation.NewContext(
		simulation.WithBundledLabware(proto.BundledLabware),
		simulation.WithExtraLabware(proto.ExtraLabware),
		simulation.WithData(proto.Data),
	)
	sim.Home()

	eng := engine.NewCurrent(
		engine.WithProtocolFunc(d.fn),
		engine.WithLogger(d.logger),
	)

	runlog, err := d.trace(ctx, eng, proto, sim)
	if err != nil {
		return &Result{RunLog: runlog}, err
	}

	res := &Result{RunLog: runlog}
	if proto.Kind == domain.KindSource && proto.BundledLabware == nil {
		res.Bundle = bundle.Assemble(proto, sim.Registry(), sim.Data())
	}
	return res, nil
}

// runLegacy executes under the previous-generation engine. Each run gets a
// freshly constructed legacy context: there is no shared connection state
// to reset, only a new context to build.
func (d *Dispatcher) runLegacy(ctx context.Context, proto *domain.Protocol) (*Result, error) {
	sim := simulation.NewContext(
		simulation.WithConventions(simulation.ConventionsLegacy),
		simulation.WithExtraLabware(proto.ExtraLabware),
		simulation.WithData(proto.Data),
	)
	sim.Home()

	eng := engine.NewLegacy(
		engine.WithProtocolFunc(d.fn),
		engine.WithLogger(d.logger),
	)

	runlog, err := d.trace(ctx, eng, proto, sim)
	if err != nil {
		return &Result{RunLog: runlog}, err
	}
	// The legacy engine never produces bundles, even for a descriptor that
	// already carries bundled labware.
	return &Result{RunLog: runlog}, nil
}

// trace attaches a tracer to the context's bus for the duration of one
// engine invocation and returns the frozen run log. Teardown happens
// exactly once regardless of how the run ends.
func (d *Dispatcher) trace(ctx context.Context, eng ports.Engine, proto *domain.Protocol, sim *simulation.Context) (domain.RunLog, error) {
	tr := trace.New(sim.Broker(), domain.CommandTopic, d.level)
	defer tr.Release()

	handlers := []slog.Handler{tr.LogHandler()}
	if d.propagate {
		handlers = append(handlers, d.logger.Handler())
	}
	sim.SetLogger(slog.New(trace.NewTee(handlers...)))

	err := eng.Execute(ctx, proto, sim)

	tr.Release()
	return tr.RunLog(), err
}
