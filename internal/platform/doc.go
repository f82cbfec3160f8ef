// Package platform provides cross-platform filesystem operations for linking
// package directories into a project's node_modules tree. On Unix systems it
// uses native symlinks. On Windows it requires developer mode (or elevation)
// for symlinks and reports a descriptive error otherwise.
package platform
