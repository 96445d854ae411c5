// Package lifecycle tracks which phase the process is in so health checks can
// steer load balancers away before the listener closes.
package lifecycle

import "sync/atomic"

// Phase is the process lifecycle phase.
type Phase int32

const (
	// Starting is the zero phase: stores and the provider key are still being checked.
	Starting Phase = iota
	// Serving means the listener is up and traffic is welcome.
	Serving
	// Draining means a stop signal arrived and in-flight requests are finishing.
	Draining
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case Draining:
		return "shutting-down"
	default:
		return "unknown"
	}
}

var phase atomic.Int32

// Set moves the process to p.
func Set(p Phase) {
	phase.Store(int32(p))
}

// Current returns the current phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown reports whether the process is draining.
func IsShuttingDown() bool {
	return Current() == Draining
}
