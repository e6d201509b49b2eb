package labsim

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/wetbench/labsim/internal/config"
	"github.com/wetbench/labsim/internal/dispatch"
	"github.com/wetbench/labsim/internal/parse"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
	"github.com/wetbench/labsim/pkg/trace"
)

// Version is the labsim release version.
const Version = "0.4.0"

// options collects the per-call configuration for Simulate.
type options struct {
	labwarePaths []string
	dataPaths    []string
	level        trace.Level
	logger       *slog.Logger
	fn           simulation.ProtocolFunc
	propagate    bool

	useV2      *bool
	backcompat *bool
}

// Option configures a call to Simulate.
type Option func(*options)

// WithLabwarePaths adds directories searched (non-recursively) for custom
// labware definitions.
func WithLabwarePaths(paths ...string) Option {
	return func(o *options) { o.labwarePaths = append(o.labwarePaths, paths...) }
}

// WithDataPaths adds data files, or directories whose immediate files, are
// made available to the protocol by bare filename.
func WithDataPaths(paths ...string) Option {
	return func(o *options) { o.dataPaths = append(o.dataPaths, paths...) }
}

// WithLogLevel sets the minimum severity captured into the run log.
// Defaults to warning; trace.LevelNone disables capture.
func WithLogLevel(level trace.Level) Option {
	return func(o *options) { o.level = level }
}

// WithLogger sets the operator-facing logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithProtocolFunc registers the Go function executed as the body of a
// source-form protocol.
func WithProtocolFunc(fn simulation.ProtocolFunc) Option {
	return func(o *options) { o.fn = fn }
}

// WithPropagateLogs forwards protocol diagnostics to the operator logger
// in addition to capturing them in the run log.
func WithPropagateLogs() Option {
	return func(o *options) { o.propagate = true }
}

// WithProtocolAPIv2 overrides the current-generation engine setting for
// this call only.
func WithProtocolAPIv2(enabled bool) Option {
	return func(o *options) { o.useV2 = &enabled }
}

// WithBackcompat overrides the legacy backcompat permission for this call
// only.
func WithBackcompat(enabled bool) Option {
	return func(o *options) { o.backcompat = &enabled }
}

// Simulate parses and executes the protocol read from r, returning the run
// log and, when the run qualifies, the contents needed to bundle the
// protocol. It is a one-stop function: flags come from the settings file
// and environment unless overridden by options.
//
// On an ExecutionError the partial run log recorded before the failure is
// returned alongside the error. ParseError, ConfigurationError and
// ResourceError are surfaced before any execution and return a nil run log.
func Simulate(ctx context.Context, r io.Reader, fileName string, opts ...Option) (domain.RunLog, *domain.BundleContents, error) {
	o := options{level: trace.LevelWarning}
	for _, opt := range opts {
		opt(&o)
	}

	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot read protocol: %w", err)
	}

	var extraLabware map[string]domain.LabwareDefinition
	if len(o.labwarePaths) > 0 {
		if extraLabware, err = parse.LabwareFromPaths(o.labwarePaths); err != nil {
			return nil, nil, err
		}
	}

	var extraData map[string][]byte
	if len(o.dataPaths) > 0 {
		if extraData, err = parse.DataFilesFromPaths(o.dataPaths); err != nil {
			return nil, nil, err
		}
	}

	proto, err := parse.Parse(contents, fileName, extraLabware, extraData)
	if err != nil {
		return nil, nil, err
	}

	flags, err := config.Load(config.DefaultPath())
	if err != nil {
		return nil, nil, err
	}
	if o.useV2 != nil {
		flags.UseProtocolAPIv2 = *o.useV2
	}
	if o.backcompat != nil {
		flags.EnableBackcompat = *o.backcompat
	}

	dispatchOpts := []dispatch.Option{
		dispatch.WithLogLevel(o.level),
		dispatch.WithProtocolFunc(o.fn),
		dispatch.WithPropagateLogs(o.propagate),
	}
	if o.logger != nil {
		dispatchOpts = append(dispatchOpts, dispatch.WithLogger(o.logger))
	}

	res, err := dispatch.New(flags, dispatchOpts...).Run(ctx, proto)
	if err != nil {
		if res != nil {
			return res.RunLog, nil, err
		}
		return nil, nil, err
	}
	return res.RunLog, res.Bundle, nil
}
