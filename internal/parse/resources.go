package parse

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/wetbench/labsim/pkg/domain"
)

// LabwareFromPaths scans each directory (non-recursively) for labware
// definition files and returns them keyed by URI. Files that are not valid
// labware documents are skipped; an unreadable path is a ResourceError, and
// so is the same URI appearing in more than one file, since duplicates from
// different external sources are a caller error.
func LabwareFromPaths(paths []string) (map[string]domain.LabwareDefinition, error) {
	out := make(map[string]domain.LabwareDefinition)
	sources := make(map[string]string) // uri -> file it came from

	for _, dir := range paths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, &domain.ResourceError{Path: dir, Reason: "cannot read labware directory", Err: err}
		}
		for _, entry := range entries {
			if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
				continue
			}
			full := filepath.Join(dir, entry.Name())
			body, err := os.ReadFile(full)
			if err != nil {
				return nil, &domain.ResourceError{Path: full, Reason: "cannot read labware file", Err: err}
			}

			var def domain.LabwareDefinition
			if err := json.Unmarshal(body, &def); err != nil {
				continue // not a labware document
			}
			uri, err := def.URI()
			if err != nil {
				continue
			}

			if prev, dup := sources[uri]; dup {
				return nil, &domain.ResourceError{
					Path:   full,
					Reason: "labware " + uri + " already defined by " + prev,
				}
			}
			sources[uri] = full
			out[uri] = def
		}
	}
	return out, nil
}

// DataFilesFromPaths loads the given files, and the non-recursive contents
// of the given directories, keyed by bare filename. A missing path or a
// bare-name collision between different sources is a ResourceError.
func DataFilesFromPaths(paths []string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	sources := make(map[string]string) // bare name -> path it came from

	add := func(full string) error {
		body, err := os.ReadFile(full)
		if err != nil {
			return &domain.ResourceError{Path: full, Reason: "cannot read data file", Err: err}
		}
		name := filepath.Base(full)
		if prev, dup := sources[name]; dup {
			return &domain.ResourceError{
				Path:   full,
				Reason: "data file " + name + " already supplied by " + prev,
			}
		}
		sources[name] = full
		out[name] = body
		return nil
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, &domain.ResourceError{Path: p, Reason: "missing data path", Err: err}
		}
		if !info.IsDir() {
			if err := add(p); err != nil {
				return nil, err
			}
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, &domain.ResourceError{Path: p, Reason: "cannot read data directory", Err: err}
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if err := add(filepath.Join(p, entry.Name())); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
