// Package api
// Author: momentics
//
// Runtime introspection contract.

package api

// Debug exposes runtime introspection.
type Debug interface {
	// DumpState emits a snapshot of system state for diagnostics.
	DumpState() map[string]any

	// RegisterProbe registers a named probe.
	RegisterProbe(name string, fn func() any)
}
