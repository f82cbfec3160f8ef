package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrNotFound is returned when a package directory or its manifest is missing.
var ErrNotFound = errors.New("manifest not found")

// Reader reads manifests from package directories.
type Reader struct{}

// ReadDependencies reads the manifest in dir. It returns an error wrapping
// ErrNotFound when dir or its package.json does not exist, and a parse error
// when the file is not valid JSON.
func (Reader) ReadDependencies(dir string) (*Package, error) {
	return ReadDir(dir)
}

// ReadDir reads and parses <dir>/package.json.
func ReadDir(dir string) (*Package, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("package path %s: %w", dir, ErrNotFound)
		}
		return nil, fmt.Errorf("inspecting package path %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("package path %s is not a directory", dir)
	}
	return ParseFile(filepath.Join(dir, FileName))
}

// ParseFile reads a manifest file and returns the parsed Package.
func ParseFile(path string) (*Package, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse decodes manifest bytes. path is used for error messages only.
func Parse(data []byte, path string) (*Package, error) {
	var p Package
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &p, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("reading file %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
