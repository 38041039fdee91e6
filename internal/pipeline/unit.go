// Package pipeline defines the uniform contract for one long-running
// assessment stage: an external exporter process or an HTTP-backed
// analysis agent. The orchestrator in internal/run sequences units and
// owns all status bookkeeping; units only do the work and emit log lines.
package pipeline

import "context"

// LogFunc receives one raw output line as it is produced.
type LogFunc func(line string)

// Unit is one pipeline stage. Run blocks until the stage finishes and
// returns a short human-readable summary on success. Re-running a unit
// overwrites its prior output under the same name.
type Unit interface {
	Name() string
	Run(ctx context.Context, onLog LogFunc) (summary string, err error)
}
