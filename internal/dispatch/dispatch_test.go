package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetbench/labsim/internal/config"
	"github.com/wetbench/labsim/internal/dispatch"
	"github.com/wetbench/labsim/internal/parse"
	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
)

const simpleJSON = `{
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

func parseFixture(t *testing.T, content, name string) *domain.Protocol {
	t.Helper()
	proto, err := parse.Parse([]byte(content), name, nil, nil)
	require.NoError(t, err)
	return proto
}

func v2Flags() config.Flags {
	return config.Flags{UseProtocolAPIv2: true}
}

func TestV1ProtocolUnderV2WithoutBackcompatFails(t *testing.T) {
	proto := parseFixture(t, `metadata = {"apiLevel": "1"}`, "old.py")

	d := dispatch.New(config.Flags{UseProtocolAPIv2: true, EnableBackcompat: false})
	res, err := d.Run(context.Background(), proto)

	var confErr *domain.ConfigurationError
	require.ErrorAs(t, err, &confErr)
	assert.Nil(t, res, "no run log may be produced when dispatch is refused")
}

func TestV1ProtocolUnderV2WithBackcompatSucceeds(t *testing.T) {
	proto := parseFixture(t, `metadata = {"apiLevel": "1"}`, "old.py")

	ran := false
	d := dispatch.New(
		config.Flags{UseProtocolAPIv2: true, EnableBackcompat: true},
		dispatch.WithProtocolFunc(func(sim *simulation.Context) error {
			ran = true
			return sim.Comment("hello from v1")
		}),
	)

	res, err := d.Run(context.Background(), proto)
	require.NoError(t, err)
	assert.True(t, ran, "the current-generation engine must execute the protocol")
	require.Len(t, res.RunLog, 1)
}

func TestJSONProtocolUnderV2(t *testing.T) {
	proto := parseFixture(t, simpleJSON, "simple.json")

	d := dispatch.New(v2Flags())
	res, err := d.Run(context.Background(), proto)
	require.NoError(t, err)

	require.Len(t, res.RunLog, 4)
	for _, span := range res.RunLog {
		assert.Equal(t, 0, span.Level)
	}
	assert.Equal(t, "A1 of Opentrons 96 Tip Rack 300 µL on 1", res.RunLog[0].Payload["location"])
	assert.Nil(t, res.Bundle, "JSON protocols are never bundled")
}

func TestSourceProtocolUnderV2ProducesBundle(t *testing.T) {
	proto := parseFixture(t, `metadata = {"apiLevel": "2"}`, "proto.py")

	d := dispatch.New(v2Flags(), dispatch.WithProtocolFunc(func(sim *simulation.Context) error {
		tips, err := sim.LoadLabwareByURI("opentrons/opentrons_96_tiprack_300ul/1", "1")
		if err != nil {
			return err
		}
		// Load the same rack twice; the bundle must carry it once.
		if _, err := sim.LoadLabwareByURI("opentrons/opentrons_96_tiprack_300ul/1", "4"); err != nil {
			return err
		}
		return sim.PickUpTip(tips, "A1")
	}))

	res, err := d.Run(context.Background(), proto)
	require.NoError(t, err)

	require.NotNil(t, res.Bundle)
	assert.Len(t, res.Bundle.BundledLabware, 1)
	assert.Equal(t, proto.Text, res.Bundle.ProtocolText)
}

func TestLegacyDispatchUsesLegacyConventions(t *testing.T) {
	proto := parseFixture(t, simpleJSON, "simple.json")

	d := dispatch.New(config.Flags{UseProtocolAPIv2: false})
	res, err := d.Run(context.Background(), proto)
	require.NoError(t, err)

	require.Len(t, res.RunLog, 4)
	assert.Equal(t, `well A1 in "1"`, res.RunLog[0].Payload["location"])
	assert.Nil(t, res.Bundle, "the legacy engine never produces bundles")
}

func TestExecutionFailureKeepsPartialRunLog(t *testing.T) {
	proto := parseFixture(t, `metadata = {"apiLevel": "2"}`, "fail.py")

	d := dispatch.New(v2Flags(), dispatch.WithProtocolFunc(func(sim *simulation.Context) error {
		if err := sim.Comment("step one"); err != nil {
			return err
		}
		return fmt.Errorf("deck crash")
	}))

	res, err := d.Run(context.Background(), proto)

	var execErr *domain.ExecutionError
	require.ErrorAs(t, err, &execErr)
	require.NotNil(t, res, "the partial run log stays available for diagnostics")
	require.Len(t, res.RunLog, 1)
	assert.Nil(t, res.Bundle)
}

func TestCancelledRunKeepsUnmatchedSpanAndTearsDown(t *testing.T) {
	proto := parseFixture(t, simpleJSON, "simple.json")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := dispatch.New(v2Flags())
	res, err := d.Run(ctx, proto)

	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled) || errors.As(err, new(*domain.ExecutionError)))
	require.NotNil(t, res)
	assert.Empty(t, res.RunLog, "cancellation before the first instruction leaves an empty run log")
}

func TestBundleRunDoesNotReassembleBundle(t *testing.T) {
	proto := &domain.Protocol{
		Kind:     domain.KindBundle,
		FileName: "simple_bundle.zip",
		Text:     "bundled body",
		APILevel: "2",
		BundledLabware: map[string]domain.LabwareDefinition{
			"custom/plate/1": {
				"namespace": "custom", "loadName": "plate", "version": 1,
			},
		},
	}

	d := dispatch.New(v2Flags(), dispatch.WithProtocolFunc(func(sim *simulation.Context) error {
		_, err := sim.LoadLabwareByURI("custom/plate/1", "1")
		return err
	}))

	res, err := d.Run(context.Background(), proto)
	require.NoError(t, err)
	assert.Nil(t, res.Bundle, "a descriptor that already carries labware is not re-bundled")
}
