package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/poyrazK/zoneplane/internal/coordination"
	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
	"github.com/poyrazK/zoneplane/internal/core/services"
	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

// IncrementSerialTask publishes pending serial bumps: every zone in the
// shard range carrying the increment_serial flag gets a new serial, a
// rebuilt SOA and (unless notify is deferred) an immediate worker cast.
type IncrementSerialTask struct {
	storage   ports.Storage
	engine    *services.SerialEngine
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewIncrementSerialTask(storage ports.Storage, engine *services.SerialEngine, interval time.Duration, batchSize int, logger *slog.Logger) *IncrementSerialTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &IncrementSerialTask{storage: storage, engine: engine, interval: interval, batchSize: batchSize, logger: logger}
}

func (t *IncrementSerialTask) Name() string            { return "increment-serial" }
func (t *IncrementSerialTask) Interval() time.Duration { return t.interval }

func (t *IncrementSerialTask) Run(ctx context.Context, shards coordination.Range) error {
	zones, err := t.storage.FindZones(ctx, domain.Criterion{
		"increment_serial": true,
		"shard":            domain.Between(shards.Start, shards.End),
	}, ports.FindOptions{Limit: t.batchSize})
	if err != nil {
		return err
	}
	for i := range zones {
		if err := t.engine.IncrementSerial(ctx, &zones[i]); err != nil {
			t.logger.Error("failed to increment zone serial", "zone", zones[i].Name, "error", err)
		}
	}
	return nil
}

// DelayedNotifyTask collapses a burst of edits into one NOTIFY: zones
// flagged delayed_notify get a single worker cast and the flag cleared.
// increment_serial is never touched here, so a bump that raced in after
// the serial was applied still gets its own cycle.
type DelayedNotifyTask struct {
	storage   ports.Storage
	worker    ports.WorkerClient
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewDelayedNotifyTask(storage ports.Storage, worker ports.WorkerClient, interval time.Duration, batchSize int, logger *slog.Logger) *DelayedNotifyTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &DelayedNotifyTask{storage: storage, worker: worker, interval: interval, batchSize: batchSize, logger: logger}
}

func (t *DelayedNotifyTask) Name() string            { return "delayed-notify" }
func (t *DelayedNotifyTask) Interval() time.Duration { return t.interval }

func (t *DelayedNotifyTask) Run(ctx context.Context, shards coordination.Range) error {
	zones, err := t.storage.FindZones(ctx, domain.Criterion{
		"delayed_notify": true,
		"shard":          domain.Between(shards.Start, shards.End),
	}, ports.FindOptions{Limit: t.batchSize})
	if err != nil {
		return err
	}
	for i := range zones {
		zone := &zones[i]
		if zone.IncrementSerial {
			// The pending bump has not been applied yet; notifying now
			// would advertise a stale serial. Leave it for the serial task.
			continue
		}
		if err := t.worker.UpdateZone(ctx, zone); err != nil {
			t.logger.Error("failed to dispatch delayed notify", "zone", zone.Name, "error", err)
			continue
		}
		metrics.NotifiesDispatched.WithLabelValues("delayed").Inc()
		if err := t.storage.SetDelayedNotify(ctx, zone.ID, false); err != nil {
			t.logger.Error("failed to clear delayed notify flag", "zone", zone.Name, "error", err)
		}
	}
	return nil
}

// ZonePurgeTask hard-deletes soft-deleted zones older than the grace
// period, re-parenting their children onto the nearest surviving
// ancestor first.
type ZonePurgeTask struct {
	svc       *services.Service
	grace     time.Duration
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewZonePurgeTask(svc *services.Service, grace, interval time.Duration, batchSize int, logger *slog.Logger) *ZonePurgeTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZonePurgeTask{svc: svc, grace: grace, interval: interval, batchSize: batchSize, logger: logger}
}

func (t *ZonePurgeTask) Name() string            { return "zone-purge" }
func (t *ZonePurgeTask) Interval() time.Duration { return t.interval }

func (t *ZonePurgeTask) Run(ctx context.Context, shards coordination.Range) error {
	cutoff := time.Now().UTC().Add(-t.grace).Format(time.RFC3339)
	count, err := t.svc.PurgeZones(ctx, domain.Criterion{
		"deleted":    "!0",
		"deleted_at": "<=" + cutoff,
		"shard":      domain.Between(shards.Start, shards.End),
	}, t.batchSize)
	if err != nil {
		return err
	}
	if count != nil && *count > 0 {
		t.logger.Info("purged deleted zones", "count", *count)
	}
	return nil
}
