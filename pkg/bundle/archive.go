package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wetbench/labsim/pkg/domain"
)

// Extension is the conventional suffix for protocol bundles.
const Extension = ".ot2.zip"

// WriteArchive serializes bundle contents as a zip archive: the protocol
// source at protocol.ot2.py, one labware definition per file under
// labware/, and data files under data/ by bare name. Entries are written
// in a fixed order with zeroed timestamps, so identical contents produce a
// byte-identical archive.
func WriteArchive(w io.Writer, bc *domain.BundleContents) error {
	zw := zip.NewWriter(w)

	if err := writeEntry(zw, "protocol.ot2.py", []byte(bc.ProtocolText)); err != nil {
		return err
	}

	uris := make([]string, 0, len(bc.BundledLabware))
	for uri := range bc.BundledLabware {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	for _, uri := range uris {
		body, err := json.Marshal(bc.BundledLabware[uri])
		if err != nil {
			return fmt.Errorf("cannot serialize labware %q: %w", uri, err)
		}
		if err := writeEntry(zw, "labware/"+safeName(uri)+".json", body); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(bc.BundledData))
	for name := range bc.BundledData {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := writeEntry(zw, "data/"+name, bc.BundledData[name]); err != nil {
			return err
		}
	}

	return zw.Close()
}

// Create writes the bundle to dest. Writing the bundle over the protocol
// file it was built from is a configuration error.
func Create(dest, protocolPath string, bc *domain.BundleContents) error {
	if sameFile(dest, protocolPath) {
		return &domain.ConfigurationError{Reason: "bundle destination and protocol file must be different"}
	}

	f, err := os.Create(dest)
	if err != nil {
		return &domain.ConfigurationError{Reason: fmt.Sprintf("cannot create bundle %q: %v", dest, err)}
	}
	defer f.Close()

	if err := WriteArchive(f, bc); err != nil {
		return err
	}
	return f.Close()
}

// DefaultDest derives the bundle filename from the protocol filename:
// proto.ot2.py becomes proto.ot2.zip in the current directory.
func DefaultDest(protocolPath string) string {
	name := filepath.Base(protocolPath)
	name = strings.TrimSuffix(name, ".ot2.py")
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return name + Extension
}

func writeEntry(zw *zip.Writer, name string, body []byte) error {
	// A bare FileHeader keeps the zero modification time, which is what
	// makes re-assembled archives byte-identical.
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func safeName(uri string) string {
	return strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(uri)
}

func sameFile(a, b string) bool {
	if a == b {
		return true
	}
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
