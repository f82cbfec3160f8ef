// Package config manages user-level settings stored at ~/.devlink/config.yaml:
// the default package manager, watch debounce and patterns, and whether
// nested declaration files are expanded. Every key can be overridden with a
// DEVLINK_* environment variable.
package config
