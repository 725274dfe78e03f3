package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

// SyncTask reconciles the local feed with the remote copy.
type SyncTask struct {
	Task
	pipeline PipelineInterface
}

func NewSyncTask(pipeline PipelineInterface) *SyncTask {
	return &SyncTask{
		Task:     NewTask(TaskTypeSync, 0),
		pipeline: pipeline,
	}
}

func (t *SyncTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result := t.pipeline.Sync(ctx)
	if !result.Succeeded() {
		return fmt.Errorf("sync failed in state %s: %w", result.State, result.Err)
	}

	slog.Info("Task completed",
		"type", "Sync",
		"id", t.ID,
		"duration", t.GetDuration(),
		"decision", result.Decision)

	return nil
}
