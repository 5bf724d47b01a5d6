package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/letsrace/digest/app/digest"
	"github.com/letsrace/digest/app/runner"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// Scheduler runs background tasks on a worker pool. A ticker checks whether
// the daily digest run is due (once per calendar day, at or after the
// configured send hour) and keeps the event cache warm in between.
type Scheduler struct {
	runner      *runner.Runner
	source      runner.EventLoader
	interval    time.Duration
	sendHour    int
	workerCount int
	now         func() time.Time

	mu          sync.Mutex
	lastRunDate time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	taskQueue chan TaskInterface
}

func NewScheduler(r *runner.Runner, source runner.EventLoader, interval time.Duration, sendHour, workerCount int) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		runner:      r,
		source:      source,
		interval:    interval,
		sendHour:    sendHour,
		workerCount: workerCount,
		now:         time.Now,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, 100),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.enqueueStartupTasks()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueDueTasks()
			}
		}
	}()
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

func (s *Scheduler) enqueueStartupTasks() {
	if err := s.EnqueueTask(NewWarmEventsTask(s.source)); err != nil {
		slog.Warn("Failed to enqueue WarmEventsTask", "error", err)
	}
}

func (s *Scheduler) enqueueDueTasks() {
	if err := s.EnqueueTask(NewWarmEventsTask(s.source)); err != nil {
		slog.Warn("Failed to enqueue WarmEventsTask", "error", err)
	}

	if !s.digestDue() {
		return
	}

	slog.Info("Daily digest run is due, enqueueing")
	if err := s.EnqueueTask(NewRunDigestTask(s.runner)); err != nil {
		slog.Warn("Failed to enqueue RunDigestTask", "error", err)
		s.resetLastRun()
	}
}

// digestDue reports whether today's run should happen now, and claims it.
// At most one digest run is triggered per calendar day, which is what makes
// the store's read-once/write-once batch safe without locking.
func (s *Scheduler) digestDue() bool {
	localNow := s.now().In(time.Local)
	if localNow.Hour() < s.sendHour {
		return false
	}

	today := digest.Day(localNow)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastRunDate.Equal(today) {
		return false
	}
	s.lastRunDate = today
	return true
}

func (s *Scheduler) resetLastRun() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRunDate = time.Time{}
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

	taskCtx, cancel := context.WithTimeout(s.ctx, 10*time.Minute)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed with no retries remaining", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := time.Duration(1<<uint(task.GetRetryCount()-1)) * time.Second
	if retryDelay > 30*time.Second {
		retryDelay = 30 * time.Second
	}

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	go func() {
		time.Sleep(retryDelay)
		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		default:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "error", retryErr)
			}
		}
	}()
}
