package labsim_test

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/wetbench/labsim"
	"github.com/wetbench/labsim/pkg/simulation"
)

// ExampleSimulate demonstrates simulating a JSON instruction protocol and
// rendering its run log.
func ExampleSimulate() {
	protocol := `{
		"metadata": {"apiLevel": "2"},
		"labware": [
			{"id": "tips", "slot": "1", "uri": "opentrons/opentrons_96_tiprack_300ul/1"},
			{"id": "plate", "slot": "2", "uri": "opentrons/corning_96_wellplate_360ul_flat/1"}
		],
		"commands": [
			{"command": "pickUpTip", "params": {"labware": "tips", "well": "A1"}},
			{"command": "dropTip", "params": {"labware": "tips", "well": "A1"}}
		]
	}`

	runlog, _, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(protocol),
		"demo.json",
		labsim.WithProtocolAPIv2(true),
	)
	if err != nil {
		log.Fatal(err)
	}

	text, err := labsim.FormatRunLog(runlog)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(text)
	// Output:
	// Picking up tip A1 of Opentrons 96 Tip Rack 300 µL on 1
	// Dropping tip A1 of Opentrons 96 Tip Rack 300 µL on 1
}

// ExampleSimulate_protocolFunc demonstrates a source-form protocol whose
// body is a Go function driving the execution context directly. Compound
// commands nest their primitive steps one level deeper.
func ExampleSimulate_protocolFunc() {
	runlog, _, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(`metadata = {"apiLevel": "2"}`),
		"demo.py",
		labsim.WithProtocolAPIv2(true),
		labsim.WithProtocolFunc(func(sim *simulation.Context) error {
			tips, err := sim.LoadLabwareByURI("opentrons/opentrons_96_tiprack_10ul/1", "3")
			if err != nil {
				return err
			}
			plate, err := sim.LoadLabwareByURI("opentrons/corning_96_wellplate_360ul_flat/1", "1")
			if err != nil {
				return err
			}
			return sim.Transfer(5, tips, "A1", plate, "A1", plate, "B1")
		}),
	)
	if err != nil {
		log.Fatal(err)
	}

	text, err := labsim.FormatRunLog(runlog)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(text)
	// Output:
	// Transferring 5 from A1 of Corning 96 Well Plate 360 µL Flat on 1 to B1 of Corning 96 Well Plate 360 µL Flat on 1
	// 	Picking up tip A1 of Opentrons 96 Tip Rack 10 µL on 3
	// 	Aspirating 5 uL from A1 of Corning 96 Well Plate 360 µL Flat on 1 at 1.0 speed
	// 	Dispensing 5 uL into B1 of Corning 96 Well Plate 360 µL Flat on 1
	// 	Dropping tip A1 of Opentrons 96 Tip Rack 10 µL on 3
}
