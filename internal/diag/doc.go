// Package diag defines the structured diagnostic events emitted by the
// resolution and linking engine. Components return or emit Events instead of
// printing, and the command layer decides how to render them.
package diag
