package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

// SerialEngine owns zone serial assignment and the SOA rebuild that
// follows. It never touches delayed_notify: the two flags drive separate
// periodic tasks with independently tunable intervals.
type SerialEngine struct {
	storage ports.Storage
	worker  ports.WorkerClient
	logger  *slog.Logger
	now     func() time.Time
}

// NewSerialEngine creates the serial/SOA consistency engine.
func NewSerialEngine(storage ports.Storage, worker ports.WorkerClient, logger *slog.Logger) *SerialEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &SerialEngine{storage: storage, worker: worker, logger: logger, now: time.Now}
}

// IncrementSerial bumps a flagged zone's serial, rebuilds its SOA record
// and, unless a deferred NOTIFY is owed, dispatches the backend update.
// The serial assignment is a single atomic update scoped by the
// increment_serial flag, so two concurrent workers cannot both bump.
func (e *SerialEngine) IncrementSerial(ctx context.Context, zone *domain.Zone) error {
	next := domain.NextSerial(zone.Serial, e.now())
	applied, err := e.storage.ApplySerial(ctx, zone.ID, next)
	if err != nil {
		return fmt.Errorf("applying serial for zone %s: %w", zone.ID, err)
	}
	if !applied {
		// Another worker claimed the bump, or the zone vanished.
		e.logger.Debug("serial bump already claimed", "zone_id", zone.ID, "zone", zone.Name)
		return nil
	}
	zone.Serial = next
	zone.IncrementSerial = false
	metrics.SerialIncrements.Inc()

	if err := e.rebuildSOA(ctx, zone); err != nil {
		return err
	}

	if !zone.DelayedNotify {
		if err := e.worker.UpdateZone(ctx, zone); err != nil {
			e.logger.Warn("failed to dispatch zone update", "zone_id", zone.ID, "error", err)
		} else {
			metrics.NotifiesDispatched.WithLabelValues("increment_serial").Inc()
		}
	}
	return nil
}

// rebuildSOA replaces the SOA recordset's sole record with the freshly
// serialized zone fields. The write goes straight to storage so the
// rebuild can never re-raise increment_serial.
func (e *SerialEngine) rebuildSOA(ctx context.Context, zone *domain.Zone) error {
	sets, err := e.storage.FindRecordSets(ctx,
		domain.Criterion{"zone_id": zone.ID, "type": string(domain.TypeSOA)},
		ports.FindOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(sets) == 0 || len(sets[0].Records) == 0 {
		// Secondary zones have no locally managed SOA.
		return nil
	}
	pool, err := e.storage.GetPool(ctx, zone.PoolID)
	if err != nil {
		return err
	}
	primary := ""
	if len(pool.Nameservers) > 0 {
		primary = pool.Nameservers[0]
	}

	rec := sets[0].Records[0]
	rec.Data = zone.SOAData(primary)
	rec.Serial = zone.Serial
	rec.Action = domain.ActionNone
	rec.Status = domain.StatusActive
	if _, err := e.storage.UpdateRecord(ctx, &rec); err != nil {
		return fmt.Errorf("rebuilding SOA for zone %s: %w", zone.ID, err)
	}
	return nil
}
