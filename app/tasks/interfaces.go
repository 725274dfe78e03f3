package tasks

import (
	"context"

	"github.com/lysyi3m/rss-brief/app/cycle"
	"github.com/lysyi3m/rss-brief/app/reconcile"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the admin API to run cycles on demand.
// Example usage:
//
//	scheduler := NewScheduler(pipeline, httpClient, opts)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewCycleTask(pipeline))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// PipelineInterface is the part of cycle.Pipeline the tasks drive.
type PipelineInterface interface {
	RunCycle(ctx context.Context) (cycle.Report, error)
	Sync(ctx context.Context) reconcile.Result
}

var _ PipelineInterface = (*cycle.Pipeline)(nil)
