package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// CycleTask runs one full daily cycle. Cycles are not retried; the next
// scheduled run picks up whatever the failed one left behind.
type CycleTask struct {
	Task
	pipeline PipelineInterface
}

func NewCycleTask(pipeline PipelineInterface) *CycleTask {
	return &CycleTask{
		Task:     NewTask(TaskTypeCycle, 0),
		pipeline: pipeline,
	}
}

func (t *CycleTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	report, err := t.pipeline.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle failed: %w", err)
	}

	slog.Info("Task completed",
		"type", "Cycle",
		"id", t.ID,
		"duration", t.GetDuration(),
		"new_items", report.NewItems,
		"rebuilt", report.Rebuilt)

	return nil
}
