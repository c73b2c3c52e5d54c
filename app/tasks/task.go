package tasks

import (
	"fmt"
	"math/rand"
	"time"
)

type TaskType string

const (
	TaskTypeProcessSource TaskType = "process_source"
	TaskTypeNotify        TaskType = "notify"
)

// Task carries the bookkeeping shared by pipeline stages: a unique ID for
// log correlation and execution timing.
type Task struct {
	ID        string
	Type      TaskType
	SourceURL string
	StartedAt *time.Time
}

func NewTask(taskType TaskType, sourceURL string) Task {
	uniqueID := fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(10000))

	return Task{
		ID:        uniqueID,
		Type:      taskType,
		SourceURL: sourceURL,
	}
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
