package platform

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func skipWithoutSymlinks(t *testing.T) {
	t.Helper()
	if !IsSymlinkSupported() {
		t.Skip("symlinks not supported on this machine")
	}
}

func TestCreateSymlinkCreatesParents(t *testing.T) {
	skipWithoutSymlinks(t)
	tmp := t.TempDir()

	target := filepath.Join(tmp, "pkg")
	if err := os.MkdirAll(target, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "index.js"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	link := filepath.Join(tmp, "app", "node_modules", "@acme", "pkg")
	if err := CreateSymlink(target, link); err != nil {
		t.Fatalf("CreateSymlink failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(link, "index.js"))
	if err != nil {
		t.Fatalf("reading through link: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("content = %q, want %q", string(data), "hello")
	}
	if !PointsTo(link, target) {
		t.Error("PointsTo should report the link resolves to target")
	}
}

func TestCreateSymlinkReplacesExistingLink(t *testing.T) {
	skipWithoutSymlinks(t)
	tmp := t.TempDir()

	first := filepath.Join(tmp, "first")
	second := filepath.Join(tmp, "second")
	for _, d := range []string{first, second} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}

	link := filepath.Join(tmp, "link")
	if err := CreateSymlink(first, link); err != nil {
		t.Fatal(err)
	}
	if err := CreateSymlink(second, link); err != nil {
		t.Fatalf("replacing link: %v", err)
	}

	got, err := ReadSymlinkTarget(link)
	if err != nil {
		t.Fatalf("ReadSymlinkTarget failed: %v", err)
	}
	if got != second {
		t.Errorf("ReadSymlinkTarget = %q, want %q", got, second)
	}
}

func TestCreateSymlinkRefusesRealDirectory(t *testing.T) {
	tmp := t.TempDir()
	link := filepath.Join(tmp, "installed")
	if err := os.MkdirAll(link, 0755); err != nil {
		t.Fatal(err)
	}

	err := CreateSymlink(tmp, link)
	if !errors.Is(err, ErrNotSymlink) {
		t.Fatalf("expected ErrNotSymlink, got %v", err)
	}
}

func TestRemoveSymlink(t *testing.T) {
	skipWithoutSymlinks(t)
	tmp := t.TempDir()

	link := filepath.Join(tmp, "link")
	if err := CreateSymlink(tmp, link); err != nil {
		t.Fatal(err)
	}
	if err := RemoveSymlink(link); err != nil {
		t.Fatalf("RemoveSymlink failed: %v", err)
	}
	if _, err := os.Lstat(link); !os.IsNotExist(err) {
		t.Error("link still exists after RemoveSymlink")
	}

	// Removing again is a no-op.
	if err := RemoveSymlink(link); err != nil {
		t.Errorf("second RemoveSymlink: %v", err)
	}
}

func TestRemoveSymlinkRefusesRealFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := RemoveSymlink(path); !errors.Is(err, ErrNotSymlink) {
		t.Fatalf("expected ErrNotSymlink, got %v", err)
	}
}

func TestPointsToMissing(t *testing.T) {
	tmp := t.TempDir()
	if PointsTo(filepath.Join(tmp, "nope"), tmp) {
		t.Error("PointsTo should be false for a missing link")
	}
}

func TestIsSymlinkSupported(t *testing.T) {
	result := IsSymlinkSupported()
	// On macOS and Linux, symlinks should always be supported.
	if runtime.GOOS != "windows" && !result {
		t.Error("IsSymlinkSupported returned false on Unix")
	}
}
