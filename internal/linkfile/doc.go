// Package linkfile parses the per-project declaration file (.devlinkrc) that
// names the local packages to build and link. Each non-comment line maps a
// package name to a filesystem path, optionally followed by a bracketed build
// command and a bracketed watch pattern list.
package linkfile
