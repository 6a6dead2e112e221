// Package services implements the zone-state reconciliation engine: the
// zone/recordset/record state machine, the serial/SOA consistency engine
// and the zone purge algorithm.
package services

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

// Defaults applied to zones created without explicit SOA timers.
const (
	defaultTTL     = 3600
	defaultRetry   = 600
	defaultExpire  = 86400
	defaultMinimum = 3600
)

// Config carries the service-level tunables.
type Config struct {
	// RefreshMin/RefreshMax bound the randomized SOA refresh interval
	// chosen at zone creation, spreading secondary refresh load across
	// zones created at the same instant.
	RefreshMin int
	RefreshMax int
}

// Service is the central zone-state service. All mutating operations wrap
// the storage facade with the action/status state machine rules.
type Service struct {
	storage ports.Storage
	worker  ports.WorkerClient
	cfg     Config
	logger  *slog.Logger

	// now is swappable for deterministic serial tests.
	now func() time.Time
}

// NewService creates the central service.
func NewService(storage ports.Storage, worker ports.WorkerClient, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RefreshMin <= 0 {
		cfg.RefreshMin = 3500
	}
	if cfg.RefreshMax < cfg.RefreshMin {
		cfg.RefreshMax = cfg.RefreshMin
	}
	return &Service{
		storage: storage,
		worker:  worker,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// CreateZone creates a zone in (CREATE, PENDING), builds its managed SOA
// and NS recordsets from the target pool's nameserver list, and casts the
// first backend update.
func (s *Service) CreateZone(ctx context.Context, zone *domain.Zone) (*domain.Zone, error) {
	if err := domain.ValidateZoneName(zone.Name); err != nil {
		return nil, err
	}
	pool, err := s.storage.GetPool(ctx, zone.PoolID)
	if err != nil {
		return nil, err
	}

	zone.ID = uuid.New().String()
	zone.Action = domain.ActionCreate
	zone.Status = domain.StatusPending
	zone.Serial = uint32(s.now().UTC().Unix()) // #nosec G115
	if zone.Type == "" {
		zone.Type = domain.ZoneTypePrimary
	}
	if zone.TTL <= 0 {
		zone.TTL = defaultTTL
	}
	if zone.Refresh <= 0 {
		zone.Refresh = s.randomRefresh()
	}
	if zone.Retry <= 0 {
		zone.Retry = defaultRetry
	}
	if zone.Expire <= 0 {
		zone.Expire = defaultExpire
	}
	if zone.Minimum <= 0 {
		zone.Minimum = defaultMinimum
	}

	zone, err = s.storage.CreateZone(ctx, zone)
	if err != nil {
		return nil, err
	}

	if len(pool.Nameservers) > 0 {
		soaTTL := zone.TTL
		if err := s.createManagedRecordSet(ctx, zone, zone.Name, domain.TypeSOA, &soaTTL,
			[]string{zone.SOAData(pool.Nameservers[0])}); err != nil {
			return nil, err
		}
		if err := s.createManagedRecordSet(ctx, zone, zone.Name, domain.TypeNS, nil,
			pool.Nameservers); err != nil {
			return nil, err
		}
	}

	if err := s.worker.UpdateZone(ctx, zone); err != nil {
		// The cast is fire-and-forget; a failed dispatch is recovered by
		// the recovery sweep once the zone sits in PENDING long enough.
		s.logger.Warn("failed to dispatch zone create", "zone_id", zone.ID, "error", err)
	}
	return zone, nil
}

// randomRefresh picks the SOA refresh interval within the configured band
// using the process-local PRNG.
func (s *Service) randomRefresh() int {
	return s.cfg.RefreshMin + rand.IntN(s.cfg.RefreshMax-s.cfg.RefreshMin+1)
}

// GetZone fetches a zone by id.
func (s *Service) GetZone(ctx context.Context, id string) (*domain.Zone, error) {
	return s.storage.GetZone(ctx, id)
}

// FindZones lists zones matching the criterion.
func (s *Service) FindZones(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Zone, error) {
	return s.storage.FindZones(ctx, c, opts)
}

// UpdateZone applies a zone attribute update. An in-flight CREATE is not
// downgraded; otherwise the action moves to UPDATE and the status back to
// PENDING. With incrementSerial the zone is flagged for the next serial
// bump; without it only a deferred NOTIFY is owed.
func (s *Service) UpdateZone(ctx context.Context, zone *domain.Zone, incrementSerial bool) (*domain.Zone, error) {
	current, err := s.storage.GetZone(ctx, zone.ID)
	if err != nil {
		return nil, err
	}
	if current.IsDeleted() || current.Action == domain.ActionDelete {
		return nil, domain.ErrZonePendingDeletion
	}

	if current.Action == domain.ActionNone {
		zone.Action = domain.ActionUpdate
	} else {
		zone.Action = current.Action
	}
	zone.Status = domain.StatusPending

	zone, err = s.storage.UpdateZone(ctx, zone)
	if err != nil {
		return nil, err
	}
	if incrementSerial {
		if err := s.storage.TouchZone(ctx, zone.ID); err != nil {
			return nil, err
		}
		zone.IncrementSerial = true
	} else {
		if err := s.storage.SetDelayedNotify(ctx, zone.ID, true); err != nil {
			return nil, err
		}
		zone.DelayedNotify = true
	}
	return zone, nil
}

// DeleteZone soft-deletes a zone: (DELETE, PENDING) plus the deleted
// sentinel, then casts the backend delete. The row is physically removed
// by the purge task after the retention grace period.
func (s *Service) DeleteZone(ctx context.Context, id string) (*domain.Zone, error) {
	zone, err := s.storage.GetZone(ctx, id)
	if err != nil {
		return nil, err
	}
	if zone.IsDeleted() {
		return nil, domain.ErrZoneNotFound
	}
	if err := s.storage.DeleteZone(ctx, id, false); err != nil {
		return nil, err
	}
	zone.Action = domain.ActionDelete
	zone.Status = domain.StatusPending
	zone.Deleted = domain.DeletedSentinel(id)

	if err := s.worker.DeleteZone(ctx, zone, false); err != nil {
		s.logger.Warn("failed to dispatch zone delete", "zone_id", zone.ID, "error", err)
	}
	return zone, nil
}

// CreatePool registers a backend nameserver pool.
func (s *Service) CreatePool(ctx context.Context, pool *domain.Pool) (*domain.Pool, error) {
	pool.ID = uuid.New().String()
	return s.storage.CreatePool(ctx, pool)
}

// GetPool fetches a pool by id.
func (s *Service) GetPool(ctx context.Context, id string) (*domain.Pool, error) {
	return s.storage.GetPool(ctx, id)
}

// FlagPoolZonesForNotify marks every live zone of a pool as owing a
// deferred NOTIFY, e.g. after the pool's nameserver list changed. The
// serial is untouched; only the delayed-notify task will act.
func (s *Service) FlagPoolZonesForNotify(ctx context.Context, poolID string) (int, error) {
	zones, err := s.storage.FindZones(ctx, domain.Criterion{"pool_id": poolID}, ports.FindOptions{})
	if err != nil {
		return 0, err
	}
	flagged := 0
	for i := range zones {
		if err := s.storage.SetDelayedNotify(ctx, zones[i].ID, true); err != nil {
			if errors.Is(err, domain.ErrZoneNotFound) {
				continue
			}
			return flagged, err
		}
		flagged++
	}
	return flagged, nil
}

// recordState implements the eager-activation rule: while the owning zone
// is PENDING a new write is marked (NONE, ACTIVE) immediately, because the
// zone-level backend report already pending is a superset check. Once the
// zone is live, writes start (CREATE, PENDING) and converge through
// UpdateStatus.
func recordState(zone *domain.Zone) (domain.Action, domain.Status) {
	if zone.Status == domain.StatusPending {
		return domain.ActionNone, domain.StatusActive
	}
	return domain.ActionCreate, domain.StatusPending
}

func (s *Service) createManagedRecordSet(ctx context.Context, zone *domain.Zone, name string, t domain.RecordType, ttl *int, datas []string) error {
	rs := &domain.RecordSet{
		ID:        uuid.New().String(),
		TenantID:  zone.TenantID,
		ZoneID:    zone.ID,
		ZoneShard: zone.Shard,
		Name:      name,
		Type:      t,
		TTL:       ttl,
	}
	if _, err := s.storage.CreateRecordSet(ctx, rs); err != nil {
		return err
	}
	for _, data := range datas {
		action, status := recordState(zone)
		rec := &domain.Record{
			ID:          uuid.New().String(),
			TenantID:    zone.TenantID,
			RecordSetID: rs.ID,
			ZoneID:      zone.ID,
			Data:        data,
			Action:      action,
			Status:      status,
			Managed:     true,
			Serial:      zone.Serial,
		}
		if _, err := s.storage.CreateRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}
