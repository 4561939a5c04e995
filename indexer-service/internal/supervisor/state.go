package supervisor

import "sync/atomic"

// State is the lifecycle phase of the run loop.
type State int32

const (
	StateStarting State = iota
	StateConnected
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateConnected:
		return "connected"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time copy of the run counters.
type Stats struct {
	Indexed int64 `json:"indexed"`
	Deleted int64 `json:"deleted"`
	Skipped int64 `json:"skipped"`
	Errors  int64 `json:"errors"`
}

// Applied is the number of events that changed the index.
func (s Stats) Applied() int64 {
	return s.Indexed + s.Deleted
}

// RunState holds the counters of one run. Safe for concurrent reads.
type RunState struct {
	indexed atomic.Int64
	deleted atomic.Int64
	skipped atomic.Int64
	errors  atomic.Int64
}

// Snapshot copies the counters.
func (r *RunState) Snapshot() Stats {
	return Stats{
		Indexed: r.indexed.Load(),
		Deleted: r.deleted.Load(),
		Skipped: r.skipped.Load(),
		Errors:  r.errors.Load(),
	}
}
