// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for the listener.
//
// Provides:
//   - Config loading from YAML with defaults and validation
//   - A metrics registry fed by a sink decorator
//   - Named debug probes dumped as structured log fields
package control
