package labsim_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetbench/labsim"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
)

const fourCommandJSON = `{
	"metadata": {"apiLevel": "2"},
	"labware": [
		{"id": "tips", "slot": "1", "uri": "opentrons/opentrons_96_tiprack_300ul/1"},
		{"id": "plate", "slot": "2", "uri": "opentrons/corning_96_wellplate_360ul_flat/1"}
	],
	"commands": [
		{"command": "pickUpTip", "params": {"labware": "tips", "well": "A1"}},
		{"command": "aspirate", "params": {"volume": 10, "labware": "plate", "well": "A1"}},
		{"command": "dispense", "params": {"volume": 10, "labware": "plate", "well": "B1"}},
		{"command": "dropTip", "params": {"labware": "tips", "well": "H12"}}
	]
}`

func isolateSettings(t *testing.T) {
	t.Helper()
	t.Setenv("LABSIM_SETTINGS", filepath.Join(t.TempDir(), "settings.yaml"))
}

func TestSimulateJSONProtocol(t *testing.T) {
	isolateSettings(t)

	runlog, bundleContents, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(fourCommandJSON),
		"simple.json",
		labsim.WithProtocolAPIv2(true),
	)
	require.NoError(t, err)
	assert.Nil(t, bundleContents)
	require.Len(t, runlog, 4)

	text, err := labsim.FormatRunLog(runlog)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Picking up tip A1 of Opentrons 96 Tip Rack 300 µL on 1",
		"Aspirating 10 uL from A1 of Corning 96 Well Plate 360 µL Flat on 2 at 1.0 speed",
		"Dispensing 10 uL into B1 of Corning 96 Well Plate 360 µL Flat on 2",
		"Dropping tip H12 of Opentrons 96 Tip Rack 300 µL on 1",
	}, strings.Split(text, "\n"))
}

func TestSimulateSourceProtocolBundles(t *testing.T) {
	isolateSettings(t)

	source := `metadata = {"apiLevel": "2"}`
	runlog, bundleContents, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(source),
		"proto.py",
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
			return sim.Transfer(1.0, tips, "A1", plate, "A1", plate, "A4")
		}),
	)
	require.NoError(t, err)

	require.Len(t, runlog, 5)
	assert.Equal(t, 0, runlog[0].Level)
	for _, child := range runlog[1:] {
		assert.Equal(t, 1, child.Level)
	}

	require.NotNil(t, bundleContents)
	assert.Equal(t, source, bundleContents.ProtocolText)
	assert.Len(t, bundleContents.BundledLabware, 2)
}

func TestSimulateLegacyEngine(t *testing.T) {
	isolateSettings(t)

	runlog, bundleContents, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(fourCommandJSON),
		"simple.json",
		labsim.WithProtocolAPIv2(false),
	)
	require.NoError(t, err)
	assert.Nil(t, bundleContents)

	text, err := labsim.FormatRunLog(runlog)
	require.NoError(t, err)
	assert.Contains(t, text, `Picking up tip well A1 in "1"`)
}

func TestSimulateVersionMismatch(t *testing.T) {
	isolateSettings(t)

	runlog, _, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(`metadata = {"apiLevel": "1"}`),
		"old.py",
		labsim.WithProtocolAPIv2(true),
		labsim.WithBackcompat(false),
	)

	var confErr *domain.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Nil(t, runlog)
}

func TestSimulateMalformedProtocol(t *testing.T) {
	isolateSettings(t)

	_, _, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(`{"metadata": {`),
		"broken.json",
		labsim.WithProtocolAPIv2(true),
	)

	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestSimulateWithCustomLabwareAndData(t *testing.T) {
	isolateSettings(t)

	labwareDir := t.TempDir()
	plate := `{
		"namespace": "custom",
		"loadName": "example_plate",
		"version": 1,
		"metadata": {"displayName": "FAKE example labware"}
	}`
	require.NoError(t, os.WriteFile(filepath.Join(labwareDir, "plate.json"), []byte(plate), 0o644))

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "plan.csv"), []byte("a,b\n"), 0o644))

	runlog, bundleContents, err := labsim.Simulate(
		context.Background(),
		strings.NewReader(`metadata = {"apiLevel": "2"}`),
		"custom.py",
		labsim.WithProtocolAPIv2(true),
		labsim.WithLabwarePaths(labwareDir),
		labsim.WithDataPaths(dataDir),
		labsim.WithProtocolFunc(func(sim *simulation.Context) error {
			lw, err := sim.LoadLabwareByURI("custom/example_plate/1", "1")
			if err != nil {
				return err
			}
			if _, ok := sim.Data()["plan.csv"]; !ok {
				return os.ErrNotExist
			}
			return sim.Comment("loaded " + lw.DisplayName)
		}),
	)
	require.NoError(t, err)
	require.Len(t, runlog, 1)
	assert.Equal(t, "loaded FAKE example labware", runlog[0].Payload["text"])

	require.NotNil(t, bundleContents)
	assert.Contains(t, bundleContents.BundledLabware, "custom/example_plate/1")
	assert.Contains(t, bundleContents.BundledData, "plan.csv")
}
