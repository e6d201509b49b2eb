package engine

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
)

// Typed instruction payloads. JSON protocols carry loosely-shaped params;
// each is decoded into one of these with its required keys enforced before
// the command runs.
type wellParams struct {
	Labware string `mapstructure:"labware"`
	Well    string `mapstructure:"well"`
}

type aspirateParams struct {
	Volume   float64 `mapstructure:"volume"`
	Labware  string  `mapstructure:"labware"`
	Well     string  `mapstructure:"well"`
	FlowRate float64 `mapstructure:"flowRate"`
}

type dispenseParams struct {
	Volume  float64 `mapstructure:"volume"`
	Labware string  `mapstructure:"labware"`
	Well    string  `mapstructure:"well"`
}

type transferParams struct {
	Volume   float64 `mapstructure:"volume"`
	Tips     string  `mapstructure:"tips"`
	TipWell  string  `mapstructure:"tipWell"`
	Source   string  `mapstructure:"source"`
	SrcWell  string  `mapstructure:"sourceWell"`
	Dest     string  `mapstructure:"dest"`
	DestWell string  `mapstructure:"destWell"`
}

type mixParams struct {
	Repetitions int     `mapstructure:"repetitions"`
	Volume      float64 `mapstructure:"volume"`
	Labware     string  `mapstructure:"labware"`
	Well        string  `mapstructure:"well"`
}

type delayParams struct {
	Seconds float64 `mapstructure:"seconds"`
}

type commentParams struct {
	Message string `mapstructure:"message"`
}

// decodeParams decodes raw params into out and verifies the required keys
// were actually present. A decode failure mid-run is an execution error,
// not a parse error: the descriptor itself was well-formed.
func decodeParams(cmd string, raw map[string]any, out any, required ...string) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: out})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%s: malformed params: %w", cmd, err)
	}
	for _, key := range required {
		if _, ok := raw[key]; !ok {
			return fmt.Errorf("%s: missing required param %q", cmd, key)
		}
	}
	return nil
}

// deck resolves labware IDs declared by the protocol to loaded handles.
type deck map[string]*simulation.Labware

func (d deck) get(id string) (*simulation.Labware, error) {
	lw, ok := d[id]
	if !ok {
		return nil, fmt.Errorf("labware %q is not declared by the protocol", id)
	}
	return lw, nil
}

// loadDeck places every labware declaration onto the context, resolving
// inline definitions first and URIs second.
func loadDeck(proto *domain.Protocol, sim *simulation.Context) (deck, error) {
	d := make(deck, len(proto.Labware))
	for _, pl := range proto.Labware {
		if pl.ID == "" {
			return nil, fmt.Errorf("labware declaration in slot %q has no id", pl.Slot)
		}
		var (
			lw  *simulation.Labware
			err error
		)
		if pl.Definition != nil {
			lw, err = sim.LoadLabware(pl.Definition, pl.Slot)
		} else {
			lw, err = sim.LoadLabwareByURI(pl.URI, pl.Slot)
		}
		if err != nil {
			return nil, err
		}
		d[pl.ID] = lw
	}
	return d, nil
}

// runInstructions interprets a JSON protocol's instruction list in order.
// Cancellation is checked between instructions; an in-flight command always
// finishes or fails on its own.
func runInstructions(ctx context.Context, proto *domain.Protocol, sim *simulation.Context) error {
	d, err := loadDeck(proto, sim)
	if err != nil {
		return &domain.ExecutionError{Err: err}
	}

	for _, ins := range proto.Instructions {
		if err := ctx.Err(); err != nil {
			return &domain.ExecutionError{Err: err}
		}
		if err := runInstruction(ins, d, sim); err != nil {
			if _, ok := err.(*domain.ExecutionError); ok {
				return err
			}
			return &domain.ExecutionError{Command: domain.Command(ins.Command), Err: err}
		}
	}
	return nil
}

func runInstruction(ins domain.Instruction, d deck, sim *simulation.Context) error {
	switch ins.Command {
	case "pickUpTip":
		var p wellParams
		if err := decodeParams(ins.Command, ins.Params, &p, "labware", "well"); err != nil {
			return err
		}
		lw, err := d.get(p.Labware)
		if err != nil {
			return err
		}
		return sim.PickUpTip(lw, p.Well)

	case "dropTip":
		var p wellParams
		if err := decodeParams(ins.Command, ins.Params, &p, "labware", "well"); err != nil {
			return err
		}
		lw, err := d.get(p.Labware)
		if err != nil {
			return err
		}
		return sim.DropTip(lw, p.Well)

	case "aspirate":
		p := aspirateParams{FlowRate: 1.0}
		if err := decodeParams(ins.Command, ins.Params, &p, "volume", "labware", "well"); err != nil {
			return err
		}
		lw, err := d.get(p.Labware)
		if err != nil {
			return err
		}
		return sim.Aspirate(p.Volume, lw, p.Well, p.FlowRate)

	case "dispense":
		var p dispenseParams
		if err := decodeParams(ins.Command, ins.Params, &p, "volume", "labware", "well"); err != nil {
			return err
		}
		lw, err := d.get(p.Labware)
		if err != nil {
			return err
		}
		return sim.Dispense(p.Volume, lw, p.Well)

	case "transfer":
		var p transferParams
		if err := decodeParams(ins.Command, ins.Params, &p,
			"volume", "tips", "tipWell", "source", "sourceWell", "dest", "destWell"); err != nil {
			return err
		}
		tips, err := d.get(p.Tips)
		if err != nil {
			return err
		}
		src, err := d.get(p.Source)
		if err != nil {
			return err
		}
		dst, err := d.get(p.Dest)
		if err != nil {
			return err
		}
		return sim.Transfer(p.Volume, tips, p.TipWell, src, p.SrcWell, dst, p.DestWell)

	case "mix":
		var p mixParams
		if err := decodeParams(ins.Command, ins.Params, &p, "repetitions", "volume", "labware", "well"); err != nil {
			return err
		}
		lw, err := d.get(p.Labware)
		if err != nil {
			return err
		}
		return sim.Mix(p.Repetitions, p.Volume, lw, p.Well)

	case "delay":
		var p delayParams
		if err := decodeParams(ins.Command, ins.Params, &p, "seconds"); err != nil {
			return err
		}
		return sim.Delay(p.Seconds)

	case "touchTip":
		return sim.TouchTip()

	case "blowOut":
		var p wellParams
		if err := decodeParams(ins.Command, ins.Params, &p, "labware", "well"); err != nil {
			return err
		}
		lw, err := d.get(p.Labware)
		if err != nil {
			return err
		}
		return sim.BlowOut(lw, p.Well)

	case "comment":
		var p commentParams
		if err := decodeParams(ins.Command, ins.Params, &p, "message"); err != nil {
			return err
		}
		return sim.Comment(p.Message)

	default:
		return fmt.Errorf("unknown command %q", ins.Command)
	}
}
