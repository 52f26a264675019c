package models

import (
	"time"

	"github.com/google/uuid"
)

// Task names consumed by the dispatcher.
const (
	TaskRemoveExpiredCode = "remove_expired_code"
)

// ScheduledTask is one row in the scheduled_tasks delayed-task queue. The
// queue is best-effort and at-least-once; handlers must tolerate firing after
// the work has already been done.
type ScheduledTask struct {
	ID        uuid.UUID
	Name      string
	Payload   map[string]any
	RunAt     time.Time
	CreatedAt time.Time
}
