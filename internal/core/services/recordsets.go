package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

// CreateRecordSet creates a recordset and its records, then flags the
// owning zone for a serial bump. CNAME recordsets are exclusive: never at
// the apex, never sharing a name with any other recordset.
func (s *Service) CreateRecordSet(ctx context.Context, rs *domain.RecordSet) (*domain.RecordSet, error) {
	zone, err := s.storage.GetZone(ctx, rs.ZoneID)
	if err != nil {
		return nil, err
	}
	if zone.IsDeleted() || zone.Action == domain.ActionDelete {
		return nil, domain.ErrZonePendingDeletion
	}
	if err := domain.ValidateRecordSetName(zone.Name, rs.Name); err != nil {
		return nil, err
	}
	if err := domain.ValidateRecordSetType(rs.Type); err != nil {
		return nil, err
	}
	if err := s.checkCNAMEExclusivity(ctx, zone, rs); err != nil {
		return nil, err
	}

	rs.ID = uuid.New().String()
	rs.TenantID = zone.TenantID
	rs.ZoneShard = zone.Shard
	if _, err := s.storage.CreateRecordSet(ctx, rs); err != nil {
		return nil, err
	}

	for i := range rs.Records {
		rec := &rs.Records[i]
		rec.ID = uuid.New().String()
		rec.TenantID = zone.TenantID
		rec.RecordSetID = rs.ID
		rec.ZoneID = zone.ID
		rec.Serial = zone.Serial
		rec.Action, rec.Status = recordState(zone)
		if _, err := s.storage.CreateRecord(ctx, rec); err != nil {
			return nil, err
		}
	}

	if err := s.storage.TouchZone(ctx, rs.ZoneID); err != nil {
		return nil, err
	}
	return rs, nil
}

func (s *Service) checkCNAMEExclusivity(ctx context.Context, zone *domain.Zone, rs *domain.RecordSet) error {
	if rs.Type == domain.TypeCNAME {
		if rs.Name == zone.Name {
			return domain.ErrCNAMEAtApex
		}
		siblings, err := s.storage.FindRecordSets(ctx,
			domain.Criterion{"zone_id": zone.ID, "name": rs.Name}, ports.FindOptions{Limit: 1})
		if err != nil {
			return err
		}
		if len(siblings) > 0 {
			return domain.ErrCNAMEConflict
		}
		return nil
	}
	cnames, err := s.storage.FindRecordSets(ctx,
		domain.Criterion{"zone_id": zone.ID, "name": rs.Name, "type": string(domain.TypeCNAME)},
		ports.FindOptions{Limit: 1})
	if err != nil {
		return err
	}
	if len(cnames) > 0 {
		return domain.ErrCNAMEConflict
	}
	return nil
}

// GetRecordSet fetches a recordset with its records.
func (s *Service) GetRecordSet(ctx context.Context, id string) (*domain.RecordSet, error) {
	return s.storage.GetRecordSet(ctx, id)
}

// FindRecordSets lists recordsets matching the criterion.
func (s *Service) FindRecordSets(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.RecordSet, error) {
	return s.storage.FindRecordSets(ctx, c, opts)
}

// UpdateRecordSet applies a recordset attribute update. Any update flags
// the zone for a serial bump when incrementSerial is set; this includes
// TTL-only edits, one uniform rule for every recordset change.
func (s *Service) UpdateRecordSet(ctx context.Context, rs *domain.RecordSet, incrementSerial bool) (*domain.RecordSet, error) {
	current, err := s.storage.GetRecordSet(ctx, rs.ID)
	if err != nil {
		return nil, err
	}
	if current.Type == domain.TypeSOA {
		return nil, domain.ErrImmutableRecordSet
	}
	rs, err = s.storage.UpdateRecordSet(ctx, rs)
	if err != nil {
		return nil, err
	}
	if incrementSerial {
		if err := s.storage.TouchZone(ctx, current.ZoneID); err != nil {
			return nil, err
		}
	}
	return rs, nil
}

// DeleteRecordSet removes a recordset and its records and flags the zone.
// Managed apex recordsets (SOA, apex NS) are immutable.
func (s *Service) DeleteRecordSet(ctx context.Context, id string, incrementSerial bool) error {
	rs, err := s.storage.GetRecordSet(ctx, id)
	if err != nil {
		return err
	}
	zone, err := s.storage.GetZone(ctx, rs.ZoneID)
	if err != nil {
		return err
	}
	if rs.Type == domain.TypeSOA || (rs.Type == domain.TypeNS && rs.Name == zone.Name) {
		return domain.ErrImmutableRecordSet
	}
	if err := s.storage.DeleteRecordSet(ctx, id); err != nil {
		return err
	}
	if incrementSerial {
		if err := s.storage.TouchZone(ctx, rs.ZoneID); err != nil {
			return err
		}
	}
	return nil
}

// CreateRecord adds a single record to a recordset and flags the zone.
func (s *Service) CreateRecord(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	rs, err := s.storage.GetRecordSet(ctx, rec.RecordSetID)
	if err != nil {
		return nil, err
	}
	zone, err := s.storage.GetZone(ctx, rs.ZoneID)
	if err != nil {
		return nil, err
	}
	if zone.IsDeleted() || zone.Action == domain.ActionDelete {
		return nil, domain.ErrZonePendingDeletion
	}

	rec.ID = uuid.New().String()
	rec.TenantID = zone.TenantID
	rec.ZoneID = zone.ID
	rec.Serial = zone.Serial
	rec.Action, rec.Status = recordState(zone)
	rec, err = s.storage.CreateRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	if err := s.storage.TouchZone(ctx, zone.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// FindRecords lists records matching the criterion.
func (s *Service) FindRecords(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Record, error) {
	return s.storage.FindRecords(ctx, c, opts)
}

// UpdateRecord rewrites a record's data and flags the zone. The record
// carries the zone serial at which the edit was requested so a stale
// backend report cannot converge it.
func (s *Service) UpdateRecord(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	zone, err := s.storage.GetZone(ctx, rec.ZoneID)
	if err != nil {
		return nil, err
	}
	if zone.IsDeleted() || zone.Action == domain.ActionDelete {
		return nil, domain.ErrZonePendingDeletion
	}
	if rec.Action == domain.ActionNone {
		rec.Action = domain.ActionUpdate
	}
	rec.Status = domain.StatusPending
	rec.Serial = zone.Serial
	rec, err = s.storage.UpdateRecord(ctx, rec)
	if err != nil {
		return nil, err
	}
	if err := s.storage.TouchZone(ctx, zone.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteRecord removes a record. While the zone is still PENDING the row
// is dropped eagerly; on a live zone it is marked (DELETE, PENDING) and
// physically removed once the backend confirms.
func (s *Service) DeleteRecord(ctx context.Context, id string) error {
	rec, err := s.storage.GetRecord(ctx, id)
	if err != nil {
		return err
	}
	zone, err := s.storage.GetZone(ctx, rec.ZoneID)
	if err != nil {
		return err
	}
	if zone.Status == domain.StatusPending {
		if err := s.storage.DeleteRecord(ctx, id); err != nil {
			return err
		}
	} else {
		rec.Action = domain.ActionDelete
		rec.Status = domain.StatusPending
		rec.Serial = zone.Serial
		if _, err := s.storage.UpdateRecord(ctx, rec); err != nil {
			return err
		}
	}
	if err := s.storage.TouchZone(ctx, zone.ID); err != nil && !errors.Is(err, domain.ErrZoneNotFound) {
		return fmt.Errorf("flagging zone %s: %w", zone.ID, err)
	}
	return nil
}
