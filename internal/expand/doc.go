// Package expand walks nested declaration files. A linked package may carry
// its own .devlinkrc naming further local packages; those are built, linked
// globally, and linked into the declaring package, transitively. Each
// (name, directory) pair is expanded at most once, which absorbs diamond and
// cyclic nesting.
package expand
