package domain

// ProtocolKind distinguishes the three intake forms a protocol can arrive in.
type ProtocolKind string

const (
	// KindSource is a protocol authored as code. The raw text is carried for
	// bundling; execution is delegated to a registered protocol function.
	KindSource ProtocolKind = "source"
	// KindJSON is a protocol expressed as structured instructions.
	KindJSON ProtocolKind = "json"
	// KindBundle is a zip archive combining a source protocol with the
	// labware and data files it requires.
	KindBundle ProtocolKind = "bundle"
)

// Instruction is one structured command in a JSON protocol. Params is the
// loosely-shaped mapping as parsed; engines decode it into a typed payload
// with required-key enforcement before executing.
type Instruction struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

// ProtocolLabware declares a labware placement in a JSON protocol. Either
// an inline definition or a URI resolved against the run's labware set.
type ProtocolLabware struct {
	ID         string            `json:"id"`
	Slot       string            `json:"slot"`
	URI        string            `json:"uri,omitempty"`
	Definition LabwareDefinition `json:"definition,omitempty"`
}

// Protocol is the parsed protocol descriptor: the dispatcher's sole input
// besides the global flags. APILevel is the version tag the protocol
// declares ("1" or "2"); it is the only compatibility signal.
type Protocol struct {
	Kind     ProtocolKind
	FileName string
	Text     string
	APILevel string

	// Instructions is populated for KindJSON protocols.
	Instructions []Instruction
	// Labware declares the placements a KindJSON protocol expects.
	Labware []ProtocolLabware

	// BundledLabware is non-nil when the protocol arrived as a bundle that
	// already carries its labware. Its presence suppresses re-bundling.
	BundledLabware map[string]LabwareDefinition
	// ExtraLabware holds definitions found in caller-supplied search
	// directories, keyed by URI.
	ExtraLabware map[string]LabwareDefinition
	// Data holds external data files merged into the run, keyed by bare
	// filename.
	Data map[string][]byte
}
