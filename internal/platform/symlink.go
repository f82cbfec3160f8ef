package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

// ErrNotSymlink is returned when a link path exists but is a real file or
// directory that must not be replaced.
var ErrNotSymlink = errors.New("path exists and is not a symlink")

// CreateSymlink creates a symbolic link at link pointing to target. Missing
// parent directories of link are created. An existing symlink at link is
// replaced; an existing regular file or directory is left alone and
// ErrNotSymlink is returned.
func CreateSymlink(target, link string) error {
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return fmt.Errorf("creating parent of %s: %w", link, err)
	}

	info, err := os.Lstat(link)
	switch {
	case err == nil && info.Mode()&fs.ModeSymlink == 0:
		return fmt.Errorf("%s: %w", link, ErrNotSymlink)
	case err == nil:
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("removing stale link %s: %w", link, err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("inspecting %s: %w", link, err)
	}

	if err := os.Symlink(target, link); err != nil {
		if runtime.GOOS == "windows" {
			return fmt.Errorf("creating symlink %s (enable Windows developer mode): %w", link, err)
		}
		return fmt.Errorf("creating symlink %s: %w", link, err)
	}
	return nil
}

// RemoveSymlink removes the symlink at path. A missing path is not an error;
// a real file or directory is refused with ErrNotSymlink.
func RemoveSymlink(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", path, err)
	}
	if info.Mode()&fs.ModeSymlink == 0 {
		return fmt.Errorf("%s: %w", path, ErrNotSymlink)
	}
	return os.Remove(path)
}

// ReadSymlinkTarget returns the target of a symlink.
func ReadSymlinkTarget(path string) (string, error) {
	return os.Readlink(path)
}

// PointsTo reports whether link resolves to the same directory as target,
// following any intermediate links (npm's global link is one hop).
func PointsTo(link, target string) bool {
	got, err := filepath.EvalSymlinks(link)
	if err != nil {
		return false
	}
	want, err := filepath.EvalSymlinks(target)
	if err != nil {
		return false
	}
	return got == want
}

// IsSymlinkSupported returns true if the current platform supports native symlinks.
// On Windows this attempts a test symlink to check developer mode.
func IsSymlinkSupported() bool {
	if runtime.GOOS != "windows" {
		return true
	}

	tmpDir := os.TempDir()
	link := filepath.Join(tmpDir, ".devlink-symlink-test")
	defer os.Remove(link)

	return os.Symlink(tmpDir, link) == nil
}
