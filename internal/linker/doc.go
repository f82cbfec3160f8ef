// Package linker drives a link run for one consuming project: it loads the
// project's declarations, builds the dependency graph, resolves the build
// order, builds and links each package in that order, expands nested
// declarations, and records the outcome in .devlink/state.yaml so later
// status and unlink commands know what was linked.
package linker
