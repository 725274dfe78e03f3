package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/rss-brief/app/cycle"
	"github.com/lysyi3m/rss-brief/app/feed"
	"github.com/lysyi3m/rss-brief/app/reconcile"
	"github.com/lysyi3m/rss-brief/app/tasks"
)

func NewHandler(feedPath, version string, pipeline PipelineInterface, scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		feedPath:  feedPath,
		version:   version,
		pipeline:  pipeline,
		scheduler: scheduler,
		startedAt: time.Now(),
	}
}

func (h *Handler) GetFeed(c *gin.Context) {
	data, err := feed.ReadLocal(h.feedPath)
	if err != nil {
		slog.Error("Failed to read feed", "path", h.feedPath, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if len(data) == 0 {
		c.String(http.StatusNotFound, "Feed not found")
		return
	}

	if buildDate, ok := feed.Watermark(data); ok {
		c.Header("X-Last-Updated", buildDate.Format(time.RFC3339))
	}

	c.Data(http.StatusOK, "application/xml; charset=utf-8", data)
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
	})
}

func (h *Handler) APIRunCycle(c *gin.Context) {
	h.enqueue(c, tasks.NewCycleTask(h.pipeline))
}

func (h *Handler) APISync(c *gin.Context) {
	h.enqueue(c, tasks.NewSyncTask(h.pipeline))
}

func (h *Handler) enqueue(c *gin.Context, task tasks.TaskInterface) {
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing task", "type", string(task.GetType()), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
		},
	})
}

func (h *Handler) APIGetStatus(c *gin.Context) {
	status := h.pipeline.Status()

	response := gin.H{
		"running": status.Running,
		"cycle":   nil,
		"sync":    nil,
	}

	if status.LastCycle != nil {
		response["cycle"] = cycleJSON(*status.LastCycle)
	}
	if status.LastSync != nil {
		response["sync"] = syncJSON(*status.LastSync)
	}

	c.JSON(http.StatusOK, response)
}

func cycleJSON(report cycle.Report) gin.H {
	out := gin.H{
		"started_at":  report.StartedAt,
		"finished_at": report.FinishedAt,
		"new_items":   report.NewItems,
		"date_key":    report.DateKey,
		"rebuilt":     report.Rebuilt,
		"entries":     report.Entries,
		"succeeded":   report.Succeeded(),
	}
	if report.Err != nil {
		out["error"] = report.Err.Error()
	}
	return out
}

func syncJSON(result reconcile.Result) gin.H {
	out := gin.H{
		"state":       result.State.String(),
		"decision":    result.Decision.String(),
		"started_at":  result.StartedAt,
		"finished_at": result.FinishedAt,
		"succeeded":   result.Succeeded(),
	}
	if !result.LocalWatermark.IsZero() {
		out["local_watermark"] = result.LocalWatermark
	}
	if !result.RemoteWatermark.IsZero() {
		out["remote_watermark"] = result.RemoteWatermark
	}
	if result.Err != nil {
		out["error"] = result.Err.Error()
	}
	return out
}
