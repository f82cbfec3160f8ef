// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed. Hard defaults apply when a key is absent.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	LinkFile    string `yaml:"link_file"`
	StateDir    string `yaml:"state_dir"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "devlink",
			DisplayName: "DevLink",
			Description: "Build and link local packages into a project",
			HomeDir:     ".devlink",
			EnvPrefix:   "DEVLINK",
			LinkFile:    ".devlinkrc",
			StateDir:    ".devlink",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "devlink").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "DevLink").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".devlink").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "DEVLINK").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// LinkFile returns the name of the per-project declaration file (e.g., ".devlinkrc").
func LinkFile() string { load(); return defaults.LinkFile }

// StateDir returns the per-project directory holding link state (e.g., ".devlink").
func StateDir() string { load(); return defaults.StateDir }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("MANAGER") → "DEVLINK_MANAGER".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
