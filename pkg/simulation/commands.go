package simulation

import (
	"fmt"
	"strconv"

	"github.com/wetbench/labsim/pkg/domain"
)

// run publishes the before event, executes the command body, and publishes
// the matching after event. On a body failure the after event is withheld,
// leaving the unmatched span visible in the run log.
func (c *Context) run(cmd domain.Command, payload map[string]any, body func() error) error {
	c.bus.Publish(domain.CommandTopic, domain.LifecycleEvent{
		Phase:   domain.PhaseBefore,
		Command: cmd,
		Payload: payload,
	})
	if body != nil {
		if err := body(); err != nil {
			return &domain.ExecutionError{Command: cmd, Err: err}
		}
	}
	c.bus.Publish(domain.CommandTopic, domain.LifecycleEvent{
		Phase:   domain.PhaseAfter,
		Command: cmd,
		Payload: payload,
	})
	return nil
}

// location renders a well address according to the context's conventions.
func (c *Context) location(lw *Labware, well string) string {
	if c.style == ConventionsLegacy {
		return fmt.Sprintf("well %s in %q", well, lw.Slot)
	}
	return fmt.Sprintf("%s of %s on %s", well, lw.DisplayName, lw.Slot)
}

// formatVolume trims a volume to its shortest decimal form: 10, 4.5.
func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatRate always keeps one decimal: aspirate at "1.0 speed".
func formatRate(r float64) string {
	return strconv.FormatFloat(r, 'f', 1, 64)
}

// PickUpTip picks up a tip from the given well of a tip rack.
func (c *Context) PickUpTip(tips *Labware, well string) error {
	payload := map[string]any{
		"text":     "Picking up tip {location}",
		"location": c.location(tips, well),
	}
	return c.run(domain.CommandPickUpTip, payload, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.hasTip {
			return fmt.Errorf("a tip is already attached")
		}
		c.hasTip = true
		return nil
	})
}

// DropTip drops the attached tip into the given well.
func (c *Context) DropTip(lw *Labware, well string) error {
	payload := map[string]any{
		"text":     "Dropping tip {location}",
		"location": c.location(lw, well),
	}
	return c.run(domain.CommandDropTip, payload, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.hasTip {
			return fmt.Errorf("no tip attached")
		}
		c.hasTip = false
		return nil
	})
}

// Aspirate draws volume µL from a well at the given flow rate multiplier.
func (c *Context) Aspirate(volume float64, lw *Labware, well string, rate float64) error {
	payload := map[string]any{
		"text":     "Aspirating {volume} uL from {location} at {rate} speed",
		"volume":   formatVolume(volume),
		"location": c.location(lw, well),
		"rate":     formatRate(rate),
	}
	return c.run(domain.CommandAspirate, payload, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.hasTip {
			return fmt.Errorf("cannot aspirate without a tip")
		}
		return nil
	})
}

// Dispense pushes volume µL into a well.
func (c *Context) Dispense(volume float64, lw *Labware, well string) error {
	payload := map[string]any{
		"text":     "Dispensing {volume} uL into {location}",
		"volume":   formatVolume(volume),
		"location": c.location(lw, well),
	}
	return c.run(domain.CommandDispense, payload, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.hasTip {
			return fmt.Errorf("cannot dispense without a tip")
		}
		return nil
	})
}

// Transfer is a compound command: it picks up a tip, aspirates from the
// source, dispenses into the destination and drops the tip, all nested one
// level below its own span.
func (c *Context) Transfer(volume float64, tips *Labware, tipWell string, src *Labware, srcWell string, dst *Labware, dstWell string) error {
	payload := map[string]any{
		"text":   "Transferring {volume} from {source} to {dest}",
		"volume": formatVolume(volume),
		"source": c.location(src, srcWell),
		"dest":   c.location(dst, dstWell),
	}
	return c.run(domain.CommandTransfer, payload, func() error {
		if err := c.PickUpTip(tips, tipWell); err != nil {
			return err
		}
		if err := c.Aspirate(volume, src, srcWell, 1.0); err != nil {
			return err
		}
		if err := c.Dispense(volume, dst, dstWell); err != nil {
			return err
		}
		return c.DropTip(tips, tipWell)
	})
}

// Mix is a compound command: repetitions aspirate/dispense pairs in place.
func (c *Context) Mix(repetitions int, volume float64, lw *Labware, well string) error {
	payload := map[string]any{
		"text":        "Mixing {repetitions} times with a volume of {volume} ul",
		"repetitions": strconv.Itoa(repetitions),
		"volume":      formatVolume(volume),
	}
	return c.run(domain.CommandMix, payload, func() error {
		for i := 0; i < repetitions; i++ {
			if err := c.Aspirate(volume, lw, well, 1.0); err != nil {
				return err
			}
			if err := c.Dispense(volume, lw, well); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delay pauses the protocol for the given number of seconds.
func (c *Context) Delay(seconds float64) error {
	whole := int(seconds)
	payload := map[string]any{
		"text":    "Delaying for {minutes}m {seconds}s",
		"minutes": strconv.Itoa(whole / 60),
		"seconds": formatVolume(float64(whole%60) + (seconds - float64(whole))),
	}
	if c.style == ConventionsLegacy {
		payload = map[string]any{
			"text": fmt.Sprintf("Delaying for %d:%02d:%02d", whole/3600, (whole%3600)/60, whole%60),
		}
	}
	return c.run(domain.CommandDelay, payload, nil)
}

// TouchTip touches the attached tip to the sides of the current well.
func (c *Context) TouchTip() error {
	payload := map[string]any{"text": "Touching tip"}
	return c.run(domain.CommandTouchTip, payload, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.hasTip {
			return fmt.Errorf("cannot touch tip without a tip")
		}
		return nil
	})
}

// BlowOut expels remaining liquid into a well.
func (c *Context) BlowOut(lw *Labware, well string) error {
	payload := map[string]any{
		"text":     "Blowing out at {location}",
		"location": c.location(lw, well),
	}
	return c.run(domain.CommandBlowOut, payload, func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.hasTip {
			return fmt.Errorf("cannot blow out without a tip")
		}
		return nil
	})
}

// Comment records a free-form message in the run log. The message is the
// payload text itself; it contains no placeholders.
func (c *Context) Comment(msg string) error {
	return c.run(domain.CommandComment, map[string]any{"text": msg}, nil)
}
