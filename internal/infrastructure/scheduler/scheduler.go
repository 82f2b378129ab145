// Package scheduler runs periodic maintenance tasks on top of gocron.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/thirdhand/marketplace/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of the last run of a task
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is a function run on a fixed interval
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// TaskStatus is a snapshot of a registered task
type TaskStatus struct {
	Name      string        `json:"name"`
	Interval  time.Duration `json:"interval"`
	Status    JobStatus     `json:"status"`
	Runs      int           `json:"runs"`
	Failures  int           `json:"failures"`
	LastRun   *time.Time    `json:"lastRun,omitempty"`
	LastError string        `json:"lastError,omitempty"`
	NextRun   *time.Time    `json:"nextRun,omitempty"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	JobTimeout time.Duration
	Location   *time.Location
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		JobTimeout: 5 * time.Minute,
		Location:   time.UTC,
	}
}

type taskState struct {
	task   Task
	job    *gocron.Job
	status TaskStatus
}

// Scheduler runs registered tasks. Each task runs in singleton mode: a run
// that is still in progress when the next tick arrives causes that tick to
// be skipped.
type Scheduler struct {
	config SchedulerConfig
	cron   *gocron.Scheduler
	logger *zap.Logger

	tasks     map[string]*taskState
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	if config.Location == nil {
		config.Location = time.UTC
	}
	cron := gocron.NewScheduler(config.Location)
	cron.TagsUnique()
	cron.WaitForScheduleAll()

	return &Scheduler{
		config: config,
		cron:   cron,
		logger: logger,
		tasks:  make(map[string]*taskState),
	}
}

// Register adds a task. Tasks must be registered before Start.
func (s *Scheduler) Register(task Task) error {
	if task.Name == "" || task.Run == nil || task.Interval <= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidTask, task.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.tasks[task.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, task.Name)
	}

	job, err := s.cron.Every(task.Interval).
		Name(task.Name).
		Tag(task.Name).
		SingletonMode().
		Do(s.execute, task.Name)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", task.Name, err)
	}

	s.tasks[task.Name] = &taskState{
		task: task,
		job:  job,
		status: TaskStatus{
			Name:     task.Name,
			Interval: task.Interval,
			Status:   JobStatusPending,
		},
	}
	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.StartAsync()

	s.logger.Info("Maintenance scheduler started",
		zap.Int("tasks", len(s.tasks)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop stops scheduling new runs and waits for running tasks to finish
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		// gocron waits for running jobs, so cancel them first
		s.cron.Stop()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Maintenance scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Maintenance scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow triggers a task outside of its schedule
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	running := s.isRunning
	_, ok := s.tasks[name]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, name)
	}
	if !running {
		return ErrSchedulerNotRunning
	}
	return s.cron.RunByTag(name)
}

// Status returns a snapshot of every task, sorted by name
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TaskStatus, 0, len(s.tasks))
	for _, st := range s.tasks {
		status := st.status
		if s.isRunning {
			if next := st.job.NextRun(); !next.IsZero() {
				status.NextRun = &next
			}
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsRunning reports whether the scheduler has been started
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// execute is the gocron job function shared by all tasks
func (s *Scheduler) execute(name string) {
	s.mu.Lock()
	st, ok := s.tasks[name]
	if !ok || !s.isRunning {
		s.mu.Unlock()
		return
	}
	parent := s.ctx
	s.wg.Add(1)
	st.status.Status = JobStatusRunning
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(parent, s.config.JobTimeout)
	defer cancel()

	started := time.Now()
	err := s.run(ctx, st.task)
	duration := time.Since(started)

	s.mu.Lock()
	st.status.Runs++
	st.status.LastRun = &started
	if err != nil {
		st.status.Status = JobStatusFailed
		st.status.Failures++
		st.status.LastError = err.Error()
	} else {
		st.status.Status = JobStatusSuccess
		st.status.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled task failed",
			zap.String("task", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Scheduled task completed",
		zap.String("task", name),
		zap.Duration("duration", duration),
	)
}

func (s *Scheduler) run(ctx context.Context, task Task) (err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "scheduler", task.Name, "task.interval", task.Interval.String())
	defer span.End()
	defer func() {
		if r := recover(); r != nil {
			telemetry.AddEvent(span, "panic", "value", fmt.Sprint(r))
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
		telemetry.RecordError(span, err)
	}()
	return task.Run(ctx)
}
