package cycle

import (
	"time"

	"github.com/lysyi3m/rss-brief/app/reconcile"
)

// Report describes one daily cycle. Reconcile is nil when the cycle aborted
// before reaching reconciliation.
type Report struct {
	StartedAt  time.Time
	FinishedAt time.Time
	NewItems   int
	DateKey    string // set when a brief was produced
	Rebuilt    bool
	Entries    int
	Reconcile  *reconcile.Result
	Err        error
}

func (r Report) Succeeded() bool {
	return r.Err == nil
}

// Status holds the outcome of the most recent cycle and sync runs.
type Status struct {
	LastCycle *Report
	LastSync  *reconcile.Result
	Running   bool
}
