package simulation

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/wetbench/labsim/pkg/broker"
	"github.com/wetbench/labsim/pkg/domain"
)

// Conventions selects the payload text style a context produces. The
// current generation renders locations as "A1 of Source Plate on 2"; the
// legacy generation renders them as `well A1 in "2"`.
type Conventions int

const (
	ConventionsCurrent Conventions = iota
	ConventionsLegacy
)

// ProtocolFunc is the body of a source-form protocol: arbitrary Go code
// driving the context's command methods.
type ProtocolFunc func(sim *Context) error

// Context is the execution context for exactly one simulation run.
type Context struct {
	bus    *broker.Broker
	logger *slog.Logger
	style  Conventions

	mu     sync.Mutex
	loaded []domain.LoadedLabware
	homed  bool
	hasTip bool

	data           map[string][]byte
	bundledLabware map[string]domain.LabwareDefinition
	extraLabware   map[string]domain.LabwareDefinition
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the context's diagnostic logger. Engine and protocol code
// log through it; route it through a tracer's handler to capture records in
// the run log.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithData supplies the external data files available to the protocol,
// keyed by bare filename.
func WithData(data map[string][]byte) Option {
	return func(c *Context) { c.data = data }
}

// WithBundledLabware supplies labware carried inside a protocol bundle.
// When set, bundle execution resolves labware from this set only.
func WithBundledLabware(defs map[string]domain.LabwareDefinition) Option {
	return func(c *Context) { c.bundledLabware = defs }
}

// WithExtraLabware supplies labware definitions found in caller-provided
// search directories, keyed by URI.
func WithExtraLabware(defs map[string]domain.LabwareDefinition) Option {
	return func(c *Context) { c.extraLabware = defs }
}

// WithConventions selects the payload text style.
func WithConventions(style Conventions) Option {
	return func(c *Context) { c.style = style }
}

// NewContext builds a fresh execution context with its own broker.
func NewContext(opts ...Option) *Context {
	c := &Context{
		bus: broker.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Broker returns the context's bus. Observers subscribe here.
func (c *Context) Broker() *broker.Broker {
	return c.bus
}

// Logger returns the context's diagnostic logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// SetLogger replaces the context's logger. The dispatcher uses this to tee
// diagnostics into the run log for the duration of a traced run.
func (c *Context) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Home resets the virtual gantry to its deterministic home state.
func (c *Context) Home() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.homed = true
	c.hasTip = false
}

// Data returns the external data files available to the protocol.
func (c *Context) Data() map[string][]byte {
	return c.data
}

// Registry returns a copy of the labware registry in load order. Reloading
// a URI appends again; deduplication is the bundle assembler's concern.
func (c *Context) Registry() []domain.LoadedLabware {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.LoadedLabware, len(c.loaded))
	copy(out, c.loaded)
	return out
}

// Labware is a handle to a loaded labware instance, used to address wells
// in command calls.
type Labware struct {
	URI         string
	Slot        string
	DisplayName string
	Definition  domain.LabwareDefinition
}

// LoadLabware places a definition on the deck and records it in the
// registry.
func (c *Context) LoadLabware(def domain.LabwareDefinition, slot string) (*Labware, error) {
	uri, err := def.URI()
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.loaded = append(c.loaded, domain.LoadedLabware{URI: uri, Slot: slot, Definition: def})
	c.mu.Unlock()

	c.logger.Debug("labware loaded", "uri", uri, "slot", slot)
	return &Labware{
		URI:         uri,
		Slot:        slot,
		DisplayName: def.DisplayName(),
		Definition:  def,
	}, nil
}

// LoadLabwareByURI resolves a definition by URI and places it on the deck.
// Bundled labware takes precedence; for a bundle run it is the only source.
// Otherwise caller-supplied extra labware is consulted, then the builtin
// set.
func (c *Context) LoadLabwareByURI(uri, slot string) (*Labware, error) {
	if def, ok := c.bundledLabware[uri]; ok {
		return c.LoadLabware(def, slot)
	}
	if c.bundledLabware != nil {
		return nil, fmt.Errorf("labware %q is not part of the bundle", uri)
	}
	if def, ok := c.extraLabware[uri]; ok {
		return c.LoadLabware(def, slot)
	}
	if def, ok := builtinLabware[uri]; ok {
		return c.LoadLabware(def, slot)
	}
	return nil, fmt.Errorf("unknown labware %q", uri)
}
