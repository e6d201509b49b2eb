// Package bundle assembles and writes portable protocol bundles: the
// protocol's source text plus the labware definitions and data files the
// run actually touched.
package bundle

import (
	"github.com/wetbench/labsim/pkg/domain"
)

// Assemble builds the bundle contents for a finished run. It walks the
// context's labware registry in load order and copies each URI's definition
// the first time it appears; later loads of the same URI are skipped, so
// the result is independent of how many times a labware was (re)loaded.
// For fixed inputs the output is deterministic.
func Assemble(proto *domain.Protocol, registry []domain.LoadedLabware, data map[string][]byte) *domain.BundleContents {
	labware := make(map[string]domain.LabwareDefinition)
	for _, lw := range registry {
		if _, seen := labware[lw.URI]; seen {
			continue
		}
		labware[lw.URI] = lw.Definition
	}

	bundled := make(map[string][]byte, len(data))
	for name, body := range data {
		bundled[name] = body
	}

	return &domain.BundleContents{
		ProtocolText:   proto.Text,
		BundledData:    bundled,
		BundledLabware: labware,
		BundledModules: map[string]string{},
	}
}
