package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/poyrazK/zoneplane/internal/coordination"
	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

// ErrorRecoveryTask re-dispatches zones stuck in ERROR, or parked in
// PENDING longer than the stale threshold. A dropped cast leaves no
// completion signal, so the sweep is the safety net that converges the
// zone on a later cycle.
type ErrorRecoveryTask struct {
	storage   ports.Storage
	worker    ports.WorkerClient
	interval  time.Duration
	stale     time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewErrorRecoveryTask(storage ports.Storage, worker ports.WorkerClient, interval, stale time.Duration, batchSize int, logger *slog.Logger) *ErrorRecoveryTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorRecoveryTask{
		storage: storage, worker: worker, interval: interval, stale: stale,
		batchSize: batchSize, logger: logger, now: time.Now,
	}
}

func (t *ErrorRecoveryTask) Name() string            { return "error-recovery" }
func (t *ErrorRecoveryTask) Interval() time.Duration { return t.interval }

func (t *ErrorRecoveryTask) Run(ctx context.Context, shards coordination.Range) error {
	cutoff := t.now().UTC().Add(-t.stale).Format(time.RFC3339)
	between := domain.Between(shards.Start, shards.End)

	errored, err := t.storage.FindZones(ctx, domain.Criterion{
		"status": string(domain.StatusError),
		"shard":  between,
	}, ports.FindOptions{Limit: t.batchSize})
	if err != nil {
		return err
	}
	stale, err := t.storage.FindZones(ctx, domain.Criterion{
		"status":     string(domain.StatusPending),
		"updated_at": "<=" + cutoff,
		"shard":      between,
	}, ports.FindOptions{Limit: t.batchSize})
	if err != nil {
		return err
	}

	for _, batch := range [][]domain.Zone{errored, stale} {
		for i := range batch {
			t.recover(ctx, &batch[i])
		}
	}
	return nil
}

// recover puts a stuck zone back on the publish path. Deletes are simply
// re-cast: a successful delete report removes the row regardless of
// status. Errored creates/updates go through TouchZone so the zone is
// PENDING again and the serial task republishes it with a fresh serial;
// a plain re-cast would never converge an ERROR zone.
func (t *ErrorRecoveryTask) recover(ctx context.Context, zone *domain.Zone) {
	t.logger.Info("recovering stuck zone",
		"zone", zone.Name, "status", string(zone.Status), "action", string(zone.Action))
	if zone.Action == domain.ActionDelete {
		if err := t.worker.DeleteZone(ctx, zone, false); err != nil {
			t.logger.Error("failed to re-dispatch zone delete", "zone", zone.Name, "error", err)
		}
		return
	}
	if zone.Status == domain.StatusError {
		if err := t.storage.TouchZone(ctx, zone.ID); err != nil {
			t.logger.Error("failed to reschedule errored zone", "zone", zone.Name, "error", err)
		}
		return
	}
	if err := t.worker.UpdateZone(ctx, zone); err != nil {
		t.logger.Error("failed to re-dispatch zone", "zone", zone.Name, "error", err)
	}
}
