package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/devlink-labs/devlink/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Keys understood by devlink.
const (
	KeyPackageManager  = "package_manager"
	KeyDebounce        = "watch.debounce"
	KeyDefaultPatterns = "watch.default_patterns"
	KeyRecursive       = "recursive"
)

// Settings is the resolved configuration for one run.
type Settings struct {
	PackageManager  string
	Debounce        time.Duration
	DefaultPatterns []string
	Recursive       bool
}

// Dir returns the path to the DevLink config directory (~/.devlink/).
// DEVLINK_HOME overrides it.
func Dir() string {
	if dir := os.Getenv(branding.EnvVar("HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.devlink/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// SetDefaults registers the built-in value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyPackageManager, "npm")
	v.SetDefault(KeyDebounce, "500ms")
	v.SetDefault(KeyDefaultPatterns, []string{"src/**", "package.json"})
	v.SetDefault(KeyRecursive, true)
}

// Load initializes Viper to read from the config file and environment.
// Nested keys map to env vars with underscores: watch.debounce is
// DEVLINK_WATCH_DEBOUNCE.
func Load() error {
	return load(viper.GetViper())
}

func load(v *viper.Viper) error {
	SetDefaults(v)
	v.SetConfigFile(FilePath())
	v.SetConfigType(fileType)
	v.SetEnvPrefix(branding.EnvPrefix())
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(FilePath()); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", FilePath(), err)
	}
	return nil
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Current returns the settings from the global Viper instance.
func Current() Settings {
	return settingsFrom(viper.GetViper())
}

func settingsFrom(v *viper.Viper) Settings {
	debounce := v.GetDuration(KeyDebounce)
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return Settings{
		PackageManager:  v.GetString(KeyPackageManager),
		Debounce:        debounce,
		DefaultPatterns: v.GetStringSlice(KeyDefaultPatterns),
		Recursive:       v.GetBool(KeyRecursive),
	}
}

// Set writes a config key-value pair and saves the config file. Only the
// file contents are rewritten; environment and flag values are not persisted.
func Set(key, value string) error {
	v := viper.New()
	v.SetConfigFile(FilePath())
	v.SetConfigType(fileType)
	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(FilePath()); !os.IsNotExist(statErr) {
			return fmt.Errorf("reading config file %s: %w", FilePath(), err)
		}
	}
	return set(v, key, value)
}

func set(v *viper.Viper, key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	switch key {
	case KeyDebounce:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
		v.Set(key, value)
	case KeyDefaultPatterns:
		v.Set(key, splitList(value))
	case KeyRecursive:
		switch strings.ToLower(value) {
		case "true", "yes", "1":
			v.Set(key, true)
		case "false", "no", "0":
			v.Set(key, false)
		default:
			return fmt.Errorf("invalid %s %q: want true or false", key, value)
		}
	default:
		v.Set(key, value)
	}

	configFile := FilePath()
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
