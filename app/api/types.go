package api

import (
	"time"

	"github.com/lysyi3m/rss-brief/app/cycle"
	"github.com/lysyi3m/rss-brief/app/tasks"
)

type PipelineInterface interface {
	tasks.PipelineInterface
	Status() cycle.Status
}

var _ PipelineInterface = (*cycle.Pipeline)(nil)

type Handler struct {
	feedPath  string
	version   string
	pipeline  PipelineInterface
	scheduler tasks.TaskSchedulerInterface
	startedAt time.Time
}
