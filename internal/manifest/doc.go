// Package manifest reads and validates package.json manifests of local
// packages. It exposes the dependency names (runtime, dev, and peer merged)
// that drive build ordering, the scripts used to pick a default build step,
// and version/range helpers used by diagnostics.
package manifest
