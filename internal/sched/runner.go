package sched

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Task is a named, stateless piece of work. Run executes inside the cycle's
// transaction, carried by ctx; its side effects commit together with the
// execution marker.
type Task interface {
	Name() string
	Run(ctx context.Context, now time.Time) error
}

// Transactor runs a function inside one database transaction carried by ctx.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// RecordStore persists execution markers. Both methods must observe the
// transaction carried by ctx.
type RecordStore interface {
	Exists(ctx context.Context, taskName, periodLabel string) (bool, error)
	Insert(ctx context.Context, taskName, periodLabel string, at time.Time) error
}

type scheduledTask struct {
	task    Task
	cadence Cadence
}

// Runner evaluates registered tasks on a fixed wake interval. Within one
// cycle tasks run sequentially, each under its own transaction keyed by
// (task name, period label): the check, the task's work and the marker
// insert commit atomically, which makes execution at-most-once per period
// even when several instances share the database.
type Runner struct {
	tx      Transactor
	records RecordStore
	log     *zap.Logger
	tasks   []scheduledTask
}

var (
	mRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sched_task_runs_total", Help: "Tasks executed and recorded",
	})
	mSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sched_task_skips_total", Help: "Tasks skipped because the period already ran",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sched_task_errors_total", Help: "Task failures",
	})
	mCycle = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "sched_cycle_duration_seconds", Help: "Wake cycle duration",
		Buckets: prometheus.DefBuckets,
	})
)

func NewRunner(tx Transactor, records RecordStore, log *zap.Logger) *Runner {
	return &Runner{
		tx:      tx,
		records: records,
		log:     log.With(zap.String("component", "sched.runner")),
	}
}

// Register adds a task. Call before Start; tasks live for the process
// lifetime.
func (r *Runner) Register(task Task, cadence Cadence) *Runner {
	r.tasks = append(r.tasks, scheduledTask{task: task, cadence: cadence})
	return r
}

// WakeInterval is 5% of the shortest registered cadence, which bounds
// detection latency without polling excessively.
func (r *Runner) WakeInterval() time.Duration {
	var min time.Duration
	for _, st := range r.tasks {
		if min == 0 || st.cadence.Interval() < min {
			min = st.cadence.Interval()
		}
	}
	return min / 20
}

// Start runs wake cycles until ctx is cancelled, restarting itself if a
// cycle panics. Cycles never overlap: the next tick fires only after the
// loop over tasks has returned. Failed cycles are logged, never fatal.
func (r *Runner) Start(ctx context.Context) error {
	if len(r.tasks) == 0 {
		r.log.Warn("no scheduled tasks registered")
		<-ctx.Done()
		return ctx.Err()
	}

	interval := r.WakeInterval()
	r.log.Info("starting scheduled tasks",
		zap.Int("tasks", len(r.tasks)),
		zap.Duration("wake_interval", interval),
	)

	for {
		r.supervise(ctx, interval)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// A panic escaped a cycle; resume on the same interval. All durable
		// state lives in the record store, so nothing is lost.
		r.log.Error("scheduler loop restarted after panic")
	}
}

func (r *Runner) supervise(ctx context.Context, interval time.Duration) {
	defer func() {
		if p := recover(); p != nil {
			mErr.Inc()
			r.log.Error("scheduler cycle panic", zap.Any("panic", p))
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Runner) cycle(ctx context.Context) {
	start := time.Now()
	if err := r.RunCycle(ctx, start); err != nil {
		r.log.Warn("scheduled tasks failed", zap.Error(err))
	}
	mCycle.Observe(time.Since(start).Seconds())
}

// RunCycle evaluates every registered task for the given timestamp. A
// failure in one task does not prevent the others from running; the
// aggregate error exists for logging only.
func (r *Runner) RunCycle(ctx context.Context, now time.Time) error {
	tr := otel.Tracer("sched.runner")
	ctx, span := tr.Start(ctx, "sched.cycle")
	defer span.End()

	var errs []error
	for _, st := range r.tasks {
		if err := r.checkAndRun(ctx, st, now); err != nil {
			mErr.Inc()
			r.log.Error("task failed",
				zap.String("task", st.task.Name()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", st.task.Name(), err))
		}
	}
	if len(errs) > 0 {
		span.SetAttributes(attribute.Int("tasks.failed", len(errs)))
		return errors.Join(errs...)
	}
	return nil
}

// checkAndRun performs the transactional check-then-run-then-record
// sequence. If the task fails the transaction rolls back and no marker is
// written, so the task is retried on every wake until the period label
// changes or a run succeeds.
func (r *Runner) checkAndRun(ctx context.Context, st scheduledTask, now time.Time) error {
	label := st.cadence.Label(now)
	return r.tx.WithTx(ctx, func(ctx context.Context) error {
		done, err := r.records.Exists(ctx, st.task.Name(), label)
		if err != nil {
			return fmt.Errorf("check period %q: %w", label, err)
		}
		if done {
			mSkipped.Inc()
			return nil
		}
		if err := st.task.Run(ctx, now); err != nil {
			return fmt.Errorf("run period %q: %w", label, err)
		}
		if err := r.records.Insert(ctx, st.task.Name(), label, now); err != nil {
			return fmt.Errorf("record period %q: %w", label, err)
		}
		mRuns.Inc()
		r.log.Info("task executed",
			zap.String("task", st.task.Name()),
			zap.String("period", label),
		)
		return nil
	})
}
