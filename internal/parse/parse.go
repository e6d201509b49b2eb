// Package parse turns raw protocol content into a domain.Protocol and
// gathers the external labware and data resources a run may reference.
// All failures here are fatal and surface before dispatch.
package parse

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/wetbench/labsim/pkg/domain"
)

var zipMagic = []byte("PK\x03\x04")

// apiLevelPattern matches an apiLevel declaration inside a source
// protocol's metadata block, e.g. `"apiLevel": "2"` or `apiLevel = '2'`.
var apiLevelPattern = regexp.MustCompile(`["']?apiLevel["']?\s*[:=]\s*["']([^"']+)["']`)

// Parse sniffs the protocol's form (bundle archive, JSON instructions, or
// source) and produces the descriptor the dispatcher consumes. The
// caller-supplied extra labware and data are attached to the descriptor;
// for bundle archives the bundle's own resources win and external inputs
// are ignored, since bundle execution only allows bundled resources.
func Parse(contents []byte, fileName string, extraLabware map[string]domain.LabwareDefinition, extraData map[string][]byte) (*domain.Protocol, error) {
	if bytes.HasPrefix(contents, zipMagic) {
		return parseBundle(contents, fileName)
	}
	if trimmed := bytes.TrimLeft(contents, " \t\r\n"); len(trimmed) > 0 && trimmed[0] == '{' {
		return parseJSON(contents, fileName, extraLabware, extraData)
	}
	return parseSource(contents, fileName, extraLabware, extraData)
}

type jsonProtocol struct {
	Metadata struct {
		APILevel string `json:"apiLevel"`
	} `json:"metadata"`
	Labware  []domain.ProtocolLabware `json:"labware"`
	Commands []domain.Instruction     `json:"commands"`
}

func parseJSON(contents []byte, fileName string, extraLabware map[string]domain.LabwareDefinition, extraData map[string][]byte) (*domain.Protocol, error) {
	var jp jsonProtocol
	dec := json.NewDecoder(bytes.NewReader(contents))
	if err := dec.Decode(&jp); err != nil {
		return nil, &domain.ParseError{FileName: fileName, Reason: "invalid JSON", Err: err}
	}
	if len(jp.Commands) == 0 {
		return nil, &domain.ParseError{FileName: fileName, Reason: "protocol declares no commands"}
	}
	for i, ins := range jp.Commands {
		if ins.Command == "" {
			return nil, &domain.ParseError{
				FileName: fileName,
				Reason:   fmt.Sprintf("command %d has no command field", i),
			}
		}
	}

	apiLevel := jp.Metadata.APILevel
	if apiLevel == "" {
		apiLevel = "2"
	}

	return &domain.Protocol{
		Kind:         domain.KindJSON,
		FileName:     fileName,
		Text:         string(contents),
		APILevel:     apiLevel,
		Instructions: jp.Commands,
		Labware:      jp.Labware,
		ExtraLabware: extraLabware,
		Data:         extraData,
	}, nil
}

func parseSource(contents []byte, fileName string, extraLabware map[string]domain.LabwareDefinition, extraData map[string][]byte) (*domain.Protocol, error) {
	text := string(contents)
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ParseError{FileName: fileName, Reason: "protocol is empty"}
	}

	apiLevel := "1"
	if m := apiLevelPattern.FindStringSubmatch(text); m != nil {
		apiLevel = m[1]
	}

	return &domain.Protocol{
		Kind:         domain.KindSource,
		FileName:     fileName,
		Text:         text,
		APILevel:     apiLevel,
		ExtraLabware: extraLabware,
		Data:         extraData,
	}, nil
}

// parseBundle reads a protocol bundle archive: the protocol source at
// protocol.ot2.py, labware definitions under labware/, and data files
// under data/.
func parseBundle(contents []byte, fileName string) (*domain.Protocol, error) {
	zr, err := zip.NewReader(bytes.NewReader(contents), int64(len(contents)))
	if err != nil {
		return nil, &domain.ParseError{FileName: fileName, Reason: "invalid bundle archive", Err: err}
	}

	var text string
	labware := make(map[string]domain.LabwareDefinition)
	data := make(map[string][]byte)

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		body, err := readZipFile(f)
		if err != nil {
			return nil, &domain.ParseError{FileName: fileName, Reason: "cannot read " + f.Name, Err: err}
		}

		switch {
		case f.Name == "protocol.ot2.py":
			text = string(body)
		case strings.HasPrefix(f.Name, "labware/") && strings.HasSuffix(f.Name, ".json"):
			var def domain.LabwareDefinition
			if err := json.Unmarshal(body, &def); err != nil {
				return nil, &domain.ParseError{FileName: fileName, Reason: "invalid labware " + f.Name, Err: err}
			}
			uri, err := def.URI()
			if err != nil {
				return nil, &domain.ParseError{FileName: fileName, Reason: "invalid labware " + f.Name, Err: err}
			}
			labware[uri] = def
		case strings.HasPrefix(f.Name, "data/"):
			data[path.Base(f.Name)] = body
		}
	}

	if text == "" {
		return nil, &domain.ParseError{FileName: fileName, Reason: "bundle has no protocol.ot2.py"}
	}

	apiLevel := "2"
	if m := apiLevelPattern.FindStringSubmatch(text); m != nil {
		apiLevel = m[1]
	}

	return &domain.Protocol{
		Kind:           domain.KindBundle,
		FileName:       fileName,
		Text:           text,
		APILevel:       apiLevel,
		BundledLabware: labware,
		Data:           data,
	}, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
