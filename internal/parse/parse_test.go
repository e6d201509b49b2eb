package parse

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wetbench/labsim/pkg/domain"
)

func TestParseJSONProtocol(t *testing.T) {
	contents := []byte(`{
		"metadata": {"apiLevel": "2"},
		"labware": [{"id": "plate", "slot": "1", "uri": "opentrons/corning_96_wellplate_360ul_flat/1"}],
		"commands": [{"command": "comment", "params": {"text": "hello"}}]
	}`)

	proto, err := Parse(contents, "proto.json", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.KindJSON, proto.Kind)
	assert.Equal(t, "2", proto.APILevel)
	assert.Equal(t, "proto.json", proto.FileName)
	require.Len(t, proto.Instructions, 1)
	assert.Equal(t, "comment", proto.Instructions[0].Command)
	require.Len(t, proto.Labware, 1)
	assert.Equal(t, "plate", proto.Labware[0].ID)
}

func TestParseJSONDefaultsAPILevel(t *testing.T) {
	contents := []byte(`{"commands": [{"command": "comment", "params": {"text": "x"}}]}`)

	proto, err := Parse(contents, "proto.json", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", proto.APILevel)
}

func TestParseJSONErrors(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"malformed", `{"metadata": {`},
		{"no commands", `{"metadata": {"apiLevel": "2"}}`},
		{"empty command field", `{"commands": [{"params": {}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.contents), "bad.json", nil, nil)
			var parseErr *domain.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, "bad.json", parseErr.FileName)
		})
	}
}

func TestParseSourceProtocol(t *testing.T) {
	proto, err := Parse([]byte(`metadata = {"apiLevel": "2.5"}`), "proto.py", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.KindSource, proto.Kind)
	assert.Equal(t, "2.5", proto.APILevel)
	assert.Nil(t, proto.Instructions)
}

func TestParseSourceDefaultsToLevelOne(t *testing.T) {
	proto, err := Parse([]byte("from opentrons import robot\n"), "old.py", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", proto.APILevel)
}

func TestParseSourceSingleQuotedLevel(t *testing.T) {
	proto, err := Parse([]byte(`metadata = {'apiLevel': '2'}`), "proto.py", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "2", proto.APILevel)
}

func TestParseEmptySource(t *testing.T) {
	_, err := Parse([]byte("  \n\t"), "empty.py", nil, nil)
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseAttachesExternalResources(t *testing.T) {
	labware := map[string]domain.LabwareDefinition{
		"custom/plate/1": {"namespace": "custom", "loadName": "plate", "version": 1},
	}
	data := map[string][]byte{"plan.csv": []byte("a,b\n")}

	proto, err := Parse([]byte(`metadata = {"apiLevel": "2"}`), "proto.py", labware, data)
	require.NoError(t, err)
	assert.Equal(t, labware, proto.ExtraLabware)
	assert.Equal(t, data, proto.Data)
}

func writeBundle(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestParseBundle(t *testing.T) {
	archive := writeBundle(t, map[string]string{
		"protocol.ot2.py":         `metadata = {"apiLevel": "2"}`,
		"labware/custom_lw.json":  `{"namespace": "custom", "loadName": "plate", "version": 1}`,
		"data/plan.csv":           "a,b\n",
		"unrelated/ignore_me.txt": "noise",
	})

	proto, err := Parse(archive, "run.ot2.zip", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, domain.KindBundle, proto.Kind)
	assert.Equal(t, "2", proto.APILevel)
	assert.Equal(t, `metadata = {"apiLevel": "2"}`, proto.Text)
	assert.Contains(t, proto.BundledLabware, "custom/plate/1")
	assert.Equal(t, []byte("a,b\n"), proto.Data["plan.csv"])
}

func TestParseBundleWithoutProtocol(t *testing.T) {
	archive := writeBundle(t, map[string]string{
		"labware/custom_lw.json": `{"namespace": "custom", "loadName": "plate", "version": 1}`,
	})

	_, err := Parse(archive, "run.ot2.zip", nil, nil)
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParseTruncatedArchive(t *testing.T) {
	_, err := Parse([]byte("PK\x03\x04garbage"), "run.ot2.zip", nil, nil)
	var parseErr *domain.ParseError
	require.ErrorAs(t, err, &parseErr)
}
