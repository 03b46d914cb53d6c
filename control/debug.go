// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Named debug probes, evaluated on demand and rendered as log fields.

package control

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts or replaces a named probe.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// Names returns the registered probe names in sorted order.
func (dp *DebugProbes) Names() []string {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	names := make([]string, 0, len(dp.probes))
	for k := range dp.probes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// DumpState evaluates every probe. Probes that read reactor state must only
// be dumped from the loop goroutine or after the loop has returned.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// Fields renders the probe values as zap fields in name order.
func (dp *DebugProbes) Fields() []zap.Field {
	state := dp.DumpState()
	fields := make([]zap.Field, 0, len(state))
	for _, name := range dp.Names() {
		if v, ok := state[name]; ok {
			fields = append(fields, zap.Any(name, v))
		}
	}
	return fields
}
