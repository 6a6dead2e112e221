package services

import (
	"context"
	"errors"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
	"github.com/poyrazK/zoneplane/internal/infrastructure/metrics"
)

// maxParentHops bounds the surviving-parent walk. The hierarchy is a tree
// in correct operation; the bound turns a corrupt cycle into an explicit
// per-zone failure instead of an infinite loop.
const maxParentHops = 128

// PurgeZones hard-deletes up to limit soft-deleted zones matching the
// criterion, re-parenting any children that point into the batch at their
// nearest surviving ancestor first.
//
// The criterion must constrain the deleted column; without that guard the
// call is refused and returns nil, preventing an accidental purge of live
// zones. A nil count with nil error also means no candidates matched.
// Each zone's purge is its own unit of work: one failure is logged and
// skipped, the rest of the batch proceeds.
func (s *Service) PurgeZones(ctx context.Context, c domain.Criterion, limit int) (*int, error) {
	if _, ok := c["deleted"]; !ok {
		s.logger.Warn("refusing to purge: criterion does not constrain the deleted column")
		return nil, nil
	}

	zones, err := s.storage.FindZones(ctx, c, ports.FindOptions{Limit: limit})
	if err != nil {
		return nil, err
	}
	if len(zones) == 0 {
		return nil, nil
	}

	batch := make(map[string]*domain.Zone, len(zones))
	for i := range zones {
		batch[zones[i].ID] = &zones[i]
	}

	// Resolve every surviving parent before mutating anything: the walk
	// is a pure function over the in-memory batch.
	surviving := make(map[string]*string, len(zones))
	skip := make(map[string]bool)
	for i := range zones {
		sp, err := resolveSurvivingParent(&zones[i], batch)
		if err != nil {
			s.logger.Error("skipping purge of zone", "zone_id", zones[i].ID,
				"zone", zones[i].Name, "error", err)
			skip[zones[i].ID] = true
			continue
		}
		surviving[zones[i].ID] = sp
	}

	count := 0
	for i := range zones {
		zone := &zones[i]
		if skip[zone.ID] {
			continue
		}
		// Re-parent before the hard delete; children may not be eligible
		// for purge themselves yet.
		if _, err := s.storage.ReparentZones(ctx, zone.ID, surviving[zone.ID]); err != nil {
			s.logger.Error("failed to re-parent children", "zone_id", zone.ID, "error", err)
			continue
		}
		if err := s.storage.DeleteZone(ctx, zone.ID, true); err != nil {
			if errors.Is(err, domain.ErrZoneNotFound) {
				// Another instance got here first.
				continue
			}
			s.logger.Error("failed to purge zone", "zone_id", zone.ID, "error", err)
			continue
		}
		count++
	}
	metrics.ZonesPurged.Add(float64(count))
	s.logger.Info("purged zones", "count", count, "batch", len(zones))
	return &count, nil
}

// resolveSurvivingParent follows parent pointers through the in-batch
// index until it reaches a zone not being purged (or the root). That id
// is the re-parent target for the purged zone's children.
func resolveSurvivingParent(zone *domain.Zone, batch map[string]*domain.Zone) (*string, error) {
	parent := zone.ParentZoneID
	for hops := 0; parent != nil; hops++ {
		if hops >= maxParentHops {
			return nil, domain.ErrIllegalParentZone
		}
		next, inBatch := batch[*parent]
		if !inBatch {
			return parent, nil
		}
		parent = next.ParentZoneID
	}
	return nil, nil
}
