// Package monitoring carries the kernel's per-agent, per-round
// diagnostics. Degraded conditions (empty cells, finite-difference
// mismatches) are reported here; fatal protocol errors propagate as
// errors instead.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Agentf emits a diagnostic scoped to one agent in one round, with a
// uniform prefix so offline tooling can filter by agent.
func Agentf(round, agentID int, format string, v ...interface{}) {
	args := append([]interface{}{round, agentID}, v...)
	Logf("round=%d agent=%d "+format, args...)
}
