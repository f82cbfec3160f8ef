// Package cli defines the Cobra command tree for the devlink CLI. Each file
// in this package registers one top-level command (link, order, status, etc.)
// with the root command. Command implementations delegate to internal packages
// for the linking logic and only handle flags, settings and output.
package cli
