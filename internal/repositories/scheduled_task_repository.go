package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgtype"

	"github.com/vanbook/backend/internal/models"
)

// ScheduledTaskRepository backs the delayed-task queue. Claiming is a
// DELETE .. RETURNING with SKIP LOCKED so concurrent dispatchers never run
// the same row twice; a handler crash after the claim simply loses the task,
// which the queue's best-effort contract allows (read-time expiry checks and
// the nightly sweep are the correctness backstops).
type ScheduledTaskRepository interface {
	Create(ctx context.Context, task *models.ScheduledTask) error
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error)
	// CleanupOrphaned drops tasks long past their run time, covering the
	// case where the dispatcher was down when they came due.
	CleanupOrphaned(ctx context.Context, olderThan time.Duration) error
}

type scheduledTaskRepository struct {
	db DB
}

func NewScheduledTaskRepository(db DB) ScheduledTaskRepository {
	return &scheduledTaskRepository{db: db}
}

func (r *scheduledTaskRepository) Create(ctx context.Context, task *models.ScheduledTask) error {
	q := `
        INSERT INTO scheduled_tasks (id, name, payload, run_at, created_at)
        VALUES ($1, $2, $3, $4, NOW())
    `
	payload := &pgtype.JSONB{Status: pgtype.Null}
	if task.Payload != nil {
		raw, err := json.Marshal(task.Payload)
		if err != nil {
			return err
		}
		payload.Bytes = raw
		payload.Status = pgtype.Present
	}
	_, err := r.db.Exec(ctx, q, task.ID, task.Name, payload, task.RunAt)
	return err
}

func (r *scheduledTaskRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error) {
	q := `
        DELETE FROM scheduled_tasks
        WHERE id IN (
            SELECT id FROM scheduled_tasks
            WHERE run_at <= $1
            ORDER BY run_at
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, name, payload, run_at, created_at
    `
	rows, err := r.db.Query(ctx, q, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.ScheduledTask
	for rows.Next() {
		var task models.ScheduledTask
		var payload pgtype.JSONB
		if err := rows.Scan(&task.ID, &task.Name, &payload, &task.RunAt, &task.CreatedAt); err != nil {
			return nil, err
		}
		if payload.Status == pgtype.Present && len(payload.Bytes) > 0 {
			if err := json.Unmarshal(payload.Bytes, &task.Payload); err != nil {
				return nil, err
			}
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

func (r *scheduledTaskRepository) CleanupOrphaned(ctx context.Context, olderThan time.Duration) error {
	q := `DELETE FROM scheduled_tasks WHERE run_at < NOW() - $1::interval`
	_, err := r.db.Exec(ctx, q, olderThan)
	return err
}
