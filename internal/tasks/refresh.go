package tasks

import (
	"context"
	"log/slog"
	"time"

	"github.com/poyrazK/zoneplane/internal/coordination"
	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

// SecondaryRefreshTask polls the masters of SECONDARY zones whose refresh
// interval elapsed and triggers a transfer when the master moved ahead.
type SecondaryRefreshTask struct {
	storage   ports.Storage
	worker    ports.WorkerClient
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewSecondaryRefreshTask(storage ports.Storage, worker ports.WorkerClient, interval time.Duration, batchSize int, logger *slog.Logger) *SecondaryRefreshTask {
	if logger == nil {
		logger = slog.Default()
	}
	return &SecondaryRefreshTask{
		storage: storage, worker: worker, interval: interval,
		batchSize: batchSize, logger: logger, now: time.Now,
	}
}

func (t *SecondaryRefreshTask) Name() string            { return "secondary-refresh" }
func (t *SecondaryRefreshTask) Interval() time.Duration { return t.interval }

func (t *SecondaryRefreshTask) Run(ctx context.Context, shards coordination.Range) error {
	zones, err := t.storage.FindZones(ctx, domain.Criterion{
		"type":  string(domain.ZoneTypeSecondary),
		"shard": domain.Between(shards.Start, shards.End),
	}, ports.FindOptions{Limit: t.batchSize, SortKey: "updated_at"})
	if err != nil {
		return err
	}
	now := t.now().UTC()
	for i := range zones {
		zone := &zones[i]
		if !t.refreshDue(zone, now) {
			continue
		}
		t.refreshZone(ctx, zone)
	}
	return nil
}

func (t *SecondaryRefreshTask) refreshDue(zone *domain.Zone, now time.Time) bool {
	last := zone.CreatedAt
	if zone.UpdatedAt != nil {
		last = *zone.UpdatedAt
	}
	return now.Sub(last) >= time.Duration(zone.Refresh)*time.Second
}

// refreshZone asks each master for its serial until one answers, then
// transfers if the master is ahead. SOA serial comparison is plain
// ordering; serial arithmetic wraparound is the master's problem to avoid.
func (t *SecondaryRefreshTask) refreshZone(ctx context.Context, zone *domain.Zone) {
	if len(zone.Masters) == 0 {
		t.logger.Warn("secondary zone has no masters", "zone", zone.Name)
		return
	}
	for _, master := range zone.Masters {
		status, serial, err := t.worker.GetSerialNumber(ctx, zone, master, 53)
		if err != nil {
			t.logger.Warn("failed to poll master serial", "zone", zone.Name, "master", master, "error", err)
			continue
		}
		if status != "SUCCESS" {
			t.logger.Warn("master serial poll unsuccessful", "zone", zone.Name, "master", master, "status", status)
			continue
		}
		if serial <= zone.Serial {
			return
		}
		t.logger.Info("master serial ahead, transferring zone",
			"zone", zone.Name, "master", master, "master_serial", serial, "local_serial", zone.Serial)
		if err := t.worker.PerformZoneXfr(ctx, zone, zone.Masters); err != nil {
			t.logger.Error("failed to dispatch zone transfer", "zone", zone.Name, "error", err)
		}
		return
	}
}
