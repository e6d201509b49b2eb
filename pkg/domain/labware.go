package domain

import "fmt"

// LabwareDefinition is an opaque structured labware document (plate, tip
// rack, reservoir). Its identity is the URI derived from the namespace,
// load name and version fields; everything else is carried as-is.
type LabwareDefinition map[string]any

// URI returns the definition's identity, or an error if the identifying
// fields are missing. The format is namespace/loadName/version.
func (d LabwareDefinition) URI() (string, error) {
	ns, ok := d["namespace"].(string)
	if !ok || ns == "" {
		return "", fmt.Errorf("labware definition has no namespace")
	}
	load, ok := d["loadName"].(string)
	if !ok || load == "" {
		return "", fmt.Errorf("labware definition has no loadName")
	}
	version, ok := d["version"]
	if !ok {
		return "", fmt.Errorf("labware definition has no version")
	}
	return fmt.Sprintf("%s/%s/%v", ns, load, version), nil
}

// DisplayName returns the human-readable name, falling back to loadName.
func (d LabwareDefinition) DisplayName() string {
	if meta, ok := d["metadata"].(map[string]any); ok {
		if name, ok := meta["displayName"].(string); ok && name != "" {
			return name
		}
	}
	name, _ := d["loadName"].(string)
	return name
}

// LoadedLabware is one entry in the execution context's resource registry:
// a labware instance placed on the deck during a run, in load order.
type LoadedLabware struct {
	URI        string            `json:"uri"`
	Slot       string            `json:"slot"`
	Definition LabwareDefinition `json:"definition"`
}

// BundleContents is the portable snapshot of a protocol and the external
// resources it referenced, assembled once after a run completes.
// BundledModules is reserved for auxiliary source modules and is always
// empty in this release.
type BundleContents struct {
	ProtocolText   string                       `json:"protocolText"`
	BundledData    map[string][]byte            `json:"bundledData"`
	BundledLabware map[string]LabwareDefinition `json:"bundledLabware"`
	BundledModules map[string]string            `json:"bundledModules"`
}
