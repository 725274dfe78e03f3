package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// PingTask requests the keep-alive URL so hosting platforms that idle
// inactive services keep the process running.
type PingTask struct {
	Task
	httpClient *http.Client
	url        string
	userAgent  string
	timeout    time.Duration
}

func NewPingTask(httpClient *http.Client, url, userAgent string, timeout time.Duration) *PingTask {
	return &PingTask{
		Task:       NewTask(TaskTypePing, DefaultMaxRetries),
		httpClient: httpClient,
		url:        url,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (t *PingTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, "GET", t.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to ping: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	slog.Debug("Task completed",
		"type", "Ping",
		"url", t.url,
		"status", resp.StatusCode,
		"duration", t.GetDuration())

	return nil
}
