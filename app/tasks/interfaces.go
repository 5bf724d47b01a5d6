package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The main application starts and stops it; the API layer
// enqueues ad-hoc tasks (the admin run-now endpoint).
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
