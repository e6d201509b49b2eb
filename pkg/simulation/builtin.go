package simulation

import (
	"strconv"

	"github.com/wetbench/labsim/pkg/domain"
)

// builtinLabware is the standard library of definitions available to every
// run without external search paths. Definitions are deliberately small:
// the simulator only needs identity and display metadata.
var builtinLabware = map[string]domain.LabwareDefinition{
	"opentrons/opentrons_96_tiprack_300ul/1": {
		"namespace": "opentrons",
		"loadName":  "opentrons_96_tiprack_300ul",
		"version":   1,
		"metadata":  map[string]any{"displayName": "Opentrons 96 Tip Rack 300 µL"},
		"wells":     wellGrid(8, 12),
	},
	"opentrons/opentrons_96_tiprack_10ul/1": {
		"namespace": "opentrons",
		"loadName":  "opentrons_96_tiprack_10ul",
		"version":   1,
		"metadata":  map[string]any{"displayName": "Opentrons 96 Tip Rack 10 µL"},
		"wells":     wellGrid(8, 12),
	},
	"opentrons/corning_96_wellplate_360ul_flat/1": {
		"namespace": "opentrons",
		"loadName":  "corning_96_wellplate_360ul_flat",
		"version":   1,
		"metadata":  map[string]any{"displayName": "Corning 96 Well Plate 360 µL Flat"},
		"wells":     wellGrid(8, 12),
	},
	"opentrons/opentrons_1_trash_1100ml_fixed/1": {
		"namespace": "opentrons",
		"loadName":  "opentrons_1_trash_1100ml_fixed",
		"version":   1,
		"metadata":  map[string]any{"displayName": "Opentrons Fixed Trash"},
		"wells":     []string{"A1"},
	},
}

// BuiltinLabware resolves a builtin definition by URI.
func BuiltinLabware(uri string) (domain.LabwareDefinition, bool) {
	def, ok := builtinLabware[uri]
	return def, ok
}

// BuiltinLabwareSet returns a copy of the whole builtin catalog keyed by
// URI.
func BuiltinLabwareSet() map[string]domain.LabwareDefinition {
	out := make(map[string]domain.LabwareDefinition, len(builtinLabware))
	for uri, def := range builtinLabware {
		out[uri] = def
	}
	return out
}

func wellGrid(rows, cols int) []string {
	wells := make([]string, 0, rows*cols)
	for col := 1; col <= cols; col++ {
		for row := 0; row < rows; row++ {
			wells = append(wells, string(rune('A'+row))+strconv.Itoa(col))
		}
	}
	return wells
}
