// Package config loads the simulator's global feature flags from a YAML
// settings file with environment-variable overloads, mirroring how the
// robot stack stores its advanced settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment overloads. Each, when set to a boolean string, wins over the
// settings file.
const (
	EnvUseProtocolAPIv2 = "LABSIM_USE_PROTOCOL_API_V2"
	EnvEnableBackcompat = "LABSIM_ENABLE_API1_BACKCOMPAT"
	EnvSettingsPath     = "LABSIM_SETTINGS"
)

// Flags are the global switches that drive engine selection. They and the
// protocol's declared API level are the only inputs to dispatch.
type Flags struct {
	// UseProtocolAPIv2 selects the current-generation engine.
	UseProtocolAPIv2 bool `yaml:"useProtocolApi2"`
	// EnableBackcompat permits protocols declaring API level 1 to run
	// under the current-generation engine.
	EnableBackcompat bool `yaml:"enableApi1BackCompat"`
}

// DefaultPath returns the settings file location: $LABSIM_SETTINGS if set,
// otherwise ~/.labsim/settings.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvSettingsPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.yaml"
	}
	return filepath.Join(home, ".labsim", "settings.yaml")
}

// Load reads flags from the given settings file and applies environment
// overloads. A missing file is not an error; a malformed one is.
func Load(path string) (Flags, error) {
	var flags Flags

	body, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults apply.
	case err != nil:
		return Flags{}, fmt.Errorf("cannot read settings %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(body, &flags); err != nil {
			return Flags{}, fmt.Errorf("cannot parse settings %q: %w", path, err)
		}
	}

	applyEnv(&flags.UseProtocolAPIv2, EnvUseProtocolAPIv2)
	applyEnv(&flags.EnableBackcompat, EnvEnableBackcompat)
	return flags, nil
}

func applyEnv(target *bool, key string) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		*target = v
	}
}
