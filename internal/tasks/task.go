package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeFetchTopic     TaskType = "fetch_topic"
	TaskTypeFetchAll       TaskType = "fetch_all"
	TaskTypeCleanup        TaskType = "cleanup"
	TaskTypeExtractContent TaskType = "extract_content"
	TaskTypeSeedConfig     TaskType = "seed_config"
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetTarget() string
	Start()
	GetDuration() time.Duration
}

// Task carries the bookkeeping shared by all task types. Target names what the task works on
// (a topic name, "all", ...) for logging.
type Task struct {
	ID        string
	Type      TaskType
	Target    string
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetTarget() string {
	return t.Target
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType, target string) Task {
	return Task{
		ID:     uuid.NewString(),
		Type:   taskType,
		Target: target,
	}
}
