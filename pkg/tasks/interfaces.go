package tasks

import "github.com/hibiken/asynq"

// TaskEnqueuer is implemented by asynq.Client and by worker.Inline
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}
