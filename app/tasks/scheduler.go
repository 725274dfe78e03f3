package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Options struct {
	Hour         int
	Minute       int
	Location     *time.Location
	SyncOnStart  bool
	PingURL      string
	PingInterval time.Duration
	WorkerCount  int
	TaskTimeout  time.Duration
	PingTimeout  time.Duration
	UserAgent    string
}

type Scheduler struct {
	pipeline   PipelineInterface
	httpClient *http.Client
	opts       Options
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	taskQueue  chan TaskInterface
}

func NewScheduler(pipeline PipelineInterface, httpClient *http.Client, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = 30 * time.Minute
	}
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = 30 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 5 * time.Minute
	}

	return &Scheduler{
		pipeline:   pipeline,
		httpClient: httpClient,
		opts:       opts,
		ctx:        ctx,
		cancel:     cancel,
		taskQueue:  make(chan TaskInterface, 32),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.opts.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		if s.opts.SyncOnStart {
			s.enqueue(NewSyncTask(s.pipeline))
		}

		next := NextRun(time.Now(), s.opts.Hour, s.opts.Minute, s.opts.Location)
		slog.Info("Daily cycle scheduled", "next_run", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		defer timer.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-timer.C:
				s.enqueue(NewCycleTask(s.pipeline))

				next = NextRun(time.Now(), s.opts.Hour, s.opts.Minute, s.opts.Location)
				slog.Info("Daily cycle scheduled", "next_run", next.Format(time.RFC3339))
				timer.Reset(time.Until(next))
			}
		}
	}()

	if s.opts.PingURL != "" {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()

			ticker := time.NewTicker(s.opts.PingInterval)
			defer ticker.Stop()

			for {
				select {
				case <-s.ctx.Done():
					return
				case <-ticker.C:
					s.enqueue(NewPingTask(s.httpClient, s.opts.PingURL, s.opts.UserAgent, s.opts.PingTimeout))
				}
			}
		}()
	}
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	close(s.taskQueue)
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) enqueue(task TaskInterface) {
	if err := s.EnqueueTask(task); err != nil {
		slog.Warn("Failed to enqueue task", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}
}

// NextRun returns the first occurrence of hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task, ok := <-s.taskQueue:
			if !ok {
				return
			}
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.opts.TaskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)

	if err != nil {
		slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

		if task.CanRetry() {
			task.IncrementRetryCount()
			delay := retryDelay(task.GetRetryCount())

			slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", delay.String())

			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				select {
				case <-s.ctx.Done():
					slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
					return
				case <-time.After(delay):
					if retryErr := s.EnqueueTask(task); retryErr != nil {
						slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
					}
				}
			}()
		} else if task.GetMaxRetries() > 0 {
			slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		}
	}
}

// retryDelay doubles from one second per attempt, capped at 30 seconds.
func retryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > 6 {
		return 30 * time.Second
	}
	delay := time.Duration(1<<uint(retryCount-1)) * time.Second
	if delay > 30*time.Second {
		delay = 30 * time.Second
	}
	return delay
}
