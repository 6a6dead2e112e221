// Package tasks runs the periodic maintenance work, each task scoped to
// the shard range this instance currently owns.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/poyrazK/zoneplane/internal/coordination"
	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

// Task is one periodic unit of work. Run receives the shard range the
// runner currently owns and must scope its queries to it.
type Task interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context, shards coordination.Range) error
}

// entry pairs a task with its re-entrancy guard. The mutex is per task:
// a tick that arrives while the previous run is still executing is
// skipped, never queued.
type entry struct {
	task Task
	mu   sync.Mutex
}

// Runner drives a set of tasks on their own tickers, all sharing the
// shard range published through SetRange.
type Runner struct {
	entries []*entry
	logger  *slog.Logger

	rangeMu sync.RWMutex
	shards  coordination.Range

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner builds a runner over the given tasks. The runner starts with
// an empty range and does nothing until SetRange assigns one.
func NewRunner(tasks []Task, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{logger: logger, shards: coordination.Range{Start: 1, End: 0}}
	for _, t := range tasks {
		r.entries = append(r.entries, &entry{task: t})
	}
	return r
}

// SetRange publishes the shard range this instance owns. Runs already in
// flight finish with the range they started with; the next tick sees the
// new one.
func (r *Runner) SetRange(shards coordination.Range) {
	r.rangeMu.Lock()
	r.shards = shards
	r.rangeMu.Unlock()
	metrics.PartitionStart.Set(float64(shards.Start))
	metrics.PartitionEnd.Set(float64(shards.End))
	r.logger.Info("shard range assigned", "start", shards.Start, "end", shards.End)
}

func (r *Runner) currentRange() coordination.Range {
	r.rangeMu.RLock()
	defer r.rangeMu.RUnlock()
	return r.shards
}

// Start launches one goroutine per task. Each loops on its own ticker
// until Stop or context cancellation.
func (r *Runner) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	for _, e := range r.entries {
		r.wg.Add(1)
		go r.loop(loopCtx, e)
	}
}

// Stop cancels all task loops and waits for in-flight runs to finish.
func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, e *entry) {
	defer r.wg.Done()
	ticker := time.NewTicker(e.task.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Each tick runs off the loop so a slow invocation never
			// stalls the ticker; the per-entry TryLock keeps a task from
			// overlapping itself.
			r.wg.Add(1)
			go func() {
				defer r.wg.Done()
				r.runOnce(ctx, e)
			}()
		}
	}
}

// runOnce executes one tick. A still-running previous tick makes TryLock
// fail and the tick is skipped. Errors and panics are contained to the
// tick; the loop always survives.
func (r *Runner) runOnce(ctx context.Context, e *entry) {
	name := e.task.Name()
	if !e.mu.TryLock() {
		metrics.TaskSkipped.WithLabelValues(name).Inc()
		r.logger.Warn("skipping task tick, previous run still in progress", "task", name)
		return
	}
	defer e.mu.Unlock()

	shards := r.currentRange()
	if shards.Empty() {
		return
	}

	start := time.Now()
	defer func() {
		metrics.TaskDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		if rec := recover(); rec != nil {
			metrics.TaskRuns.WithLabelValues(name, "panic").Inc()
			r.logger.Error("task panicked", "task", name, "panic", rec)
		}
	}()

	if err := e.task.Run(ctx, shards); err != nil {
		metrics.TaskRuns.WithLabelValues(name, "error").Inc()
		r.logger.Error("task run failed", "task", name, "error", err)
		return
	}
	metrics.TaskRuns.WithLabelValues(name, "success").Inc()
}
