package domain

// CommandTopic is the broker topic carrying command lifecycle events.
// A shared broker may carry unrelated traffic on other topics; the tracer
// subscribes to this one only.
const CommandTopic = "command"

// Phase marks which side of a command boundary an event describes.
type Phase string

const (
	PhaseBefore Phase = "before"
	PhaseAfter  Phase = "after"
)

// Command kinds published by the engines. The payload's "text" template and
// named fields are specific to each kind.
const (
	CommandPickUpTip Command = "pick_up_tip"
	CommandAspirate  Command = "aspirate"
	CommandDispense  Command = "dispense"
	CommandDropTip   Command = "drop_tip"
	CommandTransfer  Command = "transfer"
	CommandMix       Command = "mix"
	CommandDelay     Command = "delay"
	CommandTouchTip  Command = "touch_tip"
	CommandBlowOut   Command = "blow_out"
	CommandComment   Command = "comment"
	CommandHome      Command = "home"
)

// Command identifies a command kind.
type Command string

// LifecycleEvent is published on CommandTopic once per command invocation
// boundary: one PhaseBefore event when the command starts and one PhaseAfter
// event when it finishes. The payload carries the command's named fields plus
// a "text" template that renders against those same fields.
type LifecycleEvent struct {
	Phase   Phase          `json:"phase"`
	Command Command        `json:"command"`
	Payload map[string]any `json:"payload"`
}
