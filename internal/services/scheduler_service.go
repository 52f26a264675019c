package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vanbook/backend/internal/config"
	"github.com/vanbook/backend/internal/models"
	"github.com/vanbook/backend/internal/repositories"
	"github.com/vanbook/backend/internal/utils"
)

// TaskScheduler enqueues a named task for execution after a delay. The queue
// is best-effort and at-least-once; nothing in the service depends on a task
// firing exactly once or on time.
type TaskScheduler interface {
	Schedule(ctx context.Context, delay time.Duration, taskName string, payload map[string]any) error
}

// TaskHandler executes one claimed task. Errors are logged by the
// dispatcher and otherwise swallowed.
type TaskHandler func(ctx context.Context, payload map[string]any) error

type schedulerService struct {
	repo repositories.ScheduledTaskRepository
	now  func() time.Time
}

func NewSchedulerService(repo repositories.ScheduledTaskRepository) TaskScheduler {
	return &schedulerService{repo: repo, now: time.Now}
}

func (s *schedulerService) Schedule(ctx context.Context, delay time.Duration, taskName string, payload map[string]any) error {
	task := &models.ScheduledTask{
		ID:      uuid.New(),
		Name:    taskName,
		Payload: payload,
		RunAt:   s.now().Add(delay),
	}
	return s.repo.Create(ctx, task)
}

// TaskDispatcher polls the queue and runs due tasks through their registered
// handlers. It is driven by the cron loop in main.
type TaskDispatcher struct {
	repo     repositories.ScheduledTaskRepository
	handlers map[string]TaskHandler
	now      func() time.Time
}

func NewTaskDispatcher(repo repositories.ScheduledTaskRepository) *TaskDispatcher {
	return &TaskDispatcher{
		repo:     repo,
		handlers: make(map[string]TaskHandler),
		now:      time.Now,
	}
}

// Register installs the handler for a task name. Must be called before the
// dispatch loop starts.
func (d *TaskDispatcher) Register(taskName string, handler TaskHandler) {
	d.handlers[taskName] = handler
}

// DispatchDue claims and executes every due task. Handler failures and
// unknown task names are logged, never propagated: the sweep is a cleanup
// backstop, not a source of truth.
func (d *TaskDispatcher) DispatchDue(ctx context.Context) error {
	tasks, err := d.repo.ClaimDue(ctx, d.now(), config.SchedulerBatchSize)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		handler, ok := d.handlers[task.Name]
		if !ok {
			utils.Logger.Warnf("No handler registered for scheduled task %q; dropping", task.Name)
			continue
		}
		if err := handler(ctx, task.Payload); err != nil {
			utils.Logger.WithError(err).Errorf("Scheduled task %q failed", task.Name)
		}
	}
	return nil
}
