// Package watch rebuilds linked packages when their sources change.
//
// A Watcher registers every directory under each package root with
// fsnotify, filters events through the package's glob patterns, and feeds
// the package name to a Debouncer. Settled names are rebuilt one at a time
// on a single goroutine, so a rebuild never overlaps another.
package watch
