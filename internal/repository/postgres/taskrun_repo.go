package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// TaskRunRepo persists the idempotency markers of the scheduled task runner:
// one row per (task_name, period_label) that ran to completion. The marker
// insert shares the task's transaction, so "ran" and "marked" are atomic.
type TaskRunRepo struct {
	db *DB
}

func NewTaskRunRepo(db *DB) *TaskRunRepo { return &TaskRunRepo{db: db} }

const (
	qTaskRunExists = `
SELECT 1
FROM scheduled_task_runs
WHERE task_name = $1 AND period_label = $2;
`

	qTaskRunInsert = `
INSERT INTO scheduled_task_runs (task_name, period_label, recorded_at)
VALUES ($1, $2, $3);
`
)

func (r *TaskRunRepo) Exists(ctx context.Context, taskName, periodLabel string) (bool, error) {
	var one int
	err := r.db.querier(ctx).QueryRow(ctx, qTaskRunExists, taskName, periodLabel).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check task run: %w", err)
	}
	return true, nil
}

func (r *TaskRunRepo) Insert(ctx context.Context, taskName, periodLabel string, at time.Time) error {
	_, err := r.db.querier(ctx).Exec(ctx, qTaskRunInsert, taskName, periodLabel, at.UTC())
	if uniqueViolation(err) {
		// A concurrent runner committed the same period first; aborting the
		// transaction undoes this run's side effects.
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("record task run: %w", err)
	}
	return nil
}
