package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to trigger a task on a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrSchedulerRunning is returned when registering tasks after Start
	ErrSchedulerRunning = errors.New("scheduler is already running")

	// ErrTaskNotFound is returned when a task is not registered
	ErrTaskNotFound = errors.New("task not found")

	// ErrDuplicateTask is returned when two tasks share a name
	ErrDuplicateTask = errors.New("task already registered")

	// ErrInvalidTask is returned for tasks without a name, a function or a positive interval
	ErrInvalidTask = errors.New("invalid task")
)
