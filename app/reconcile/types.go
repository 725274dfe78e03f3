package reconcile

import (
	"time"
)

type State int

const (
	StateStart State = iota
	StateFetched
	StateCompared
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateFetched:
		return "fetched"
	case StateCompared:
		return "compared"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type Decision int

const (
	DecisionNone Decision = iota // no decision reached
	LocalWins
	RemoteWins
	NoOp
)

func (d Decision) String() string {
	switch d {
	case LocalWins:
		return "local_wins"
	case RemoteWins:
		return "remote_wins"
	case NoOp:
		return "noop"
	default:
		return "none"
	}
}

// Result describes one reconciliation run. Watermarks are zero when the
// corresponding copy had none.
type Result struct {
	State           State
	Decision        Decision
	LocalWatermark  time.Time
	RemoteWatermark time.Time
	StartedAt       time.Time
	FinishedAt      time.Time
	Err             error
}

func (r Result) Succeeded() bool {
	return r.State == StateDone
}
