// Package graph builds the dependency graph of declared local packages and
// resolves a build order from it. Only dependencies between declared packages
// matter for ordering; everything else a manifest lists is ignored. Cycles and
// unreadable manifests degrade to diagnostics plus a best-effort order, never
// to an error.
package graph
