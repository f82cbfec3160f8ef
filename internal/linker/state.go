package linker

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/devlink-labs/devlink/internal/branding"
)

const stateFile = "state.yaml"

// ErrNoState is returned when a project has no recorded link state.
var ErrNoState = errors.New("no link state recorded")

// State represents the .devlink/state.yaml structure.
type State struct {
	Manager   string          `yaml:"manager"`
	UpdatedAt time.Time       `yaml:"updated_at"`
	Packages  []LinkedPackage `yaml:"packages"`
}

// LinkedPackage is the last recorded outcome for one package.
type LinkedPackage struct {
	Name     string    `yaml:"name"`
	Path     string    `yaml:"path"`
	Built    bool      `yaml:"built"`
	Linked   bool      `yaml:"linked"`
	Error    string    `yaml:"error,omitempty"`
	LinkedAt time.Time `yaml:"linked_at"`
}

// Find returns the recorded entry for name.
func (s *State) Find(name string) (*LinkedPackage, bool) {
	for i := range s.Packages {
		if s.Packages[i].Name == name {
			return &s.Packages[i], true
		}
	}
	return nil, false
}

// Record merges results into the state, replacing earlier entries for the
// same package and appending new ones in result order.
func (s *State) Record(results []PackageResult, at time.Time) {
	for _, r := range results {
		entry := LinkedPackage{
			Name:     r.Name,
			Path:     r.Dir,
			Built:    r.Built,
			Linked:   r.Linked,
			LinkedAt: at,
		}
		if r.Err != nil {
			entry.Error = r.Err.Error()
		}
		if existing, ok := s.Find(r.Name); ok {
			*existing = entry
		} else {
			s.Packages = append(s.Packages, entry)
		}
	}
	s.UpdatedAt = at
}

// StatePath returns the full path to .devlink/state.yaml for a project.
func StatePath(projectDir string) string {
	return filepath.Join(projectDir, branding.StateDir(), stateFile)
}

// LoadState reads and parses the project's state file. It returns an error
// wrapping ErrNoState when the file does not exist.
func LoadState(projectDir string) (*State, error) {
	path := StatePath(projectDir)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoState)
		}
		return nil, fmt.Errorf("reading link state: %w", err)
	}

	var state State
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing link state: %w", err)
	}
	return &state, nil
}

// SaveState writes the state to .devlink/state.yaml, creating the directory.
func SaveState(projectDir string, state *State) error {
	path := StatePath(projectDir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating %s directory: %w", branding.StateDir(), err)
	}

	data, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling link state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing link state: %w", err)
	}
	return nil
}

// RemoveState deletes the state file. A missing file is not an error.
func RemoveState(projectDir string) error {
	if err := os.Remove(StatePath(projectDir)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing link state: %w", err)
	}
	return nil
}
