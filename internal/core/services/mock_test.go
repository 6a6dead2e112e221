package services

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

// mockStorage is an in-memory Storage with the same flag/state semantics
// as the Postgres adapter.
type mockStorage struct {
	zones      map[string]*domain.Zone
	recordSets map[string]*domain.RecordSet
	records    map[string]*domain.Record
	pools      map[string]*domain.Pool

	touched   []string
	reparents []reparent
}

type reparent struct {
	oldParent string
	newParent *string
}

func newMockStorage() *mockStorage {
	return &mockStorage{
		zones:      make(map[string]*domain.Zone),
		recordSets: make(map[string]*domain.RecordSet),
		records:    make(map[string]*domain.Record),
		pools:      make(map[string]*domain.Pool),
	}
}

func (m *mockStorage) CreateZone(_ context.Context, zone *domain.Zone) (*domain.Zone, error) {
	zone.Shard = domain.ShardForID(zone.ID)
	zone.Deleted = domain.DeletedSentinelLive
	zone.Version = 1
	zone.CreatedAt = time.Now().UTC()
	copied := *zone
	m.zones[zone.ID] = &copied
	return zone, nil
}

func (m *mockStorage) GetZone(_ context.Context, id string) (*domain.Zone, error) {
	zone, ok := m.zones[id]
	if !ok {
		return nil, domain.ErrZoneNotFound
	}
	copied := *zone
	return &copied, nil
}

func (m *mockStorage) FindZones(_ context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Zone, error) {
	var out []domain.Zone
	for _, zone := range m.zones {
		if !matchZone(zone, c) {
			continue
		}
		out = append(out, *zone)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func matchZone(zone *domain.Zone, c domain.Criterion) bool {
	for key, raw := range c {
		cond := domain.ParseCondition(raw)
		switch key {
		case "deleted":
			if cond.Op == domain.OpNotEqual && !zone.IsDeleted() {
				return false
			}
			if cond.Op == domain.OpEqual && cond.Value != zone.Deleted {
				return false
			}
		case "increment_serial":
			if cond.Value != zone.IncrementSerial {
				return false
			}
		case "delayed_notify":
			if cond.Value != zone.DelayedNotify {
				return false
			}
		case "status":
			if cond.Value != string(zone.Status) {
				return false
			}
		case "pool_id":
			if cond.Value != zone.PoolID {
				return false
			}
		}
	}
	if _, ok := c["deleted"]; !ok && zone.IsDeleted() {
		return false
	}
	return true
}

func (m *mockStorage) UpdateZone(_ context.Context, zone *domain.Zone) (*domain.Zone, error) {
	stored, ok := m.zones[zone.ID]
	if !ok || stored.IsDeleted() {
		return nil, domain.ErrZoneNotFound
	}
	zone.Serial = stored.Serial
	zone.Version = stored.Version + 1
	zone.Deleted = stored.Deleted
	copied := *zone
	m.zones[zone.ID] = &copied
	return zone, nil
}

func (m *mockStorage) DeleteZone(_ context.Context, id string, hard bool) error {
	zone, ok := m.zones[id]
	if !ok {
		return domain.ErrZoneNotFound
	}
	if hard {
		delete(m.zones, id)
		for rid, rec := range m.records {
			if rec.ZoneID == id {
				delete(m.records, rid)
			}
		}
		for sid, rs := range m.recordSets {
			if rs.ZoneID == id {
				delete(m.recordSets, sid)
			}
		}
		return nil
	}
	if zone.IsDeleted() {
		return domain.ErrZoneNotFound
	}
	now := time.Now().UTC()
	zone.Deleted = domain.DeletedSentinel(id)
	zone.DeletedAt = &now
	zone.Action = domain.ActionDelete
	zone.Status = domain.StatusPending
	zone.Version++
	return nil
}

func (m *mockStorage) TouchZone(_ context.Context, id string) error {
	zone, ok := m.zones[id]
	if !ok || zone.IsDeleted() || zone.Action == domain.ActionDelete {
		return domain.ErrZoneNotFound
	}
	if zone.Action == domain.ActionNone {
		zone.Action = domain.ActionUpdate
	}
	zone.Status = domain.StatusPending
	zone.IncrementSerial = true
	zone.Version++
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockStorage) SetDelayedNotify(_ context.Context, id string, on bool) error {
	zone, ok := m.zones[id]
	if !ok || zone.IsDeleted() {
		return domain.ErrZoneNotFound
	}
	zone.DelayedNotify = on
	zone.Version++
	return nil
}

func (m *mockStorage) ApplySerial(_ context.Context, id string, serial uint32) (bool, error) {
	zone, ok := m.zones[id]
	if !ok || !zone.IncrementSerial {
		return false, nil
	}
	zone.Serial = serial
	zone.IncrementSerial = false
	zone.Version++
	return true, nil
}

func (m *mockStorage) ConvergeZone(_ context.Context, id string, reportedSerial uint32) (bool, error) {
	zone, ok := m.zones[id]
	if !ok || zone.IsDeleted() || zone.Status != domain.StatusPending ||
		zone.IncrementSerial || zone.Serial > reportedSerial {
		return false, nil
	}
	zone.Action = domain.ActionNone
	zone.Status = domain.StatusActive
	zone.Version++
	return true, nil
}

func (m *mockStorage) MarkZoneError(_ context.Context, id string) error {
	zone, ok := m.zones[id]
	if !ok {
		return domain.ErrZoneNotFound
	}
	zone.Status = domain.StatusError
	zone.Version++
	return nil
}

func (m *mockStorage) ReparentZones(_ context.Context, oldParentID string, newParentID *string) (int64, error) {
	m.reparents = append(m.reparents, reparent{oldParent: oldParentID, newParent: newParentID})
	var n int64
	for _, zone := range m.zones {
		if zone.ParentZoneID != nil && *zone.ParentZoneID == oldParentID {
			zone.ParentZoneID = newParentID
			zone.Version++
			n++
		}
	}
	return n, nil
}

func (m *mockStorage) CreateRecordSet(_ context.Context, rs *domain.RecordSet) (*domain.RecordSet, error) {
	copied := *rs
	m.recordSets[rs.ID] = &copied
	return rs, nil
}

func (m *mockStorage) GetRecordSet(_ context.Context, id string) (*domain.RecordSet, error) {
	rs, ok := m.recordSets[id]
	if !ok {
		return nil, domain.ErrRecordSetNotFound
	}
	copied := *rs
	copied.Records = nil
	for _, rec := range m.records {
		if rec.RecordSetID == id {
			copied.Records = append(copied.Records, *rec)
		}
	}
	return &copied, nil
}

func (m *mockStorage) FindRecordSets(_ context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.RecordSet, error) {
	var out []domain.RecordSet
	for id, rs := range m.recordSets {
		if v, ok := c["zone_id"]; ok && v != rs.ZoneID {
			continue
		}
		if v, ok := c["name"]; ok && v != rs.Name {
			continue
		}
		if v, ok := c["type"]; ok && v != string(rs.Type) {
			continue
		}
		full, _ := m.GetRecordSet(context.Background(), id)
		out = append(out, *full)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockStorage) UpdateRecordSet(_ context.Context, rs *domain.RecordSet) (*domain.RecordSet, error) {
	stored, ok := m.recordSets[rs.ID]
	if !ok {
		return nil, domain.ErrRecordSetNotFound
	}
	rs.Version = stored.Version + 1
	copied := *rs
	m.recordSets[rs.ID] = &copied
	return rs, nil
}

func (m *mockStorage) DeleteRecordSet(_ context.Context, id string) error {
	if _, ok := m.recordSets[id]; !ok {
		return domain.ErrRecordSetNotFound
	}
	delete(m.recordSets, id)
	for rid, rec := range m.records {
		if rec.RecordSetID == id {
			delete(m.records, rid)
		}
	}
	return nil
}

func (m *mockStorage) CreateRecord(_ context.Context, rec *domain.Record) (*domain.Record, error) {
	rec.Hash = domain.RecordHash(rec.RecordSetID, rec.Data)
	copied := *rec
	m.records[rec.ID] = &copied
	return rec, nil
}

func (m *mockStorage) GetRecord(_ context.Context, id string) (*domain.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	copied := *rec
	return &copied, nil
}

func (m *mockStorage) FindRecords(_ context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Record, error) {
	var out []domain.Record
	for _, rec := range m.records {
		if v, ok := c["zone_id"]; ok && v != rec.ZoneID {
			continue
		}
		if v, ok := c["status"]; ok && v != string(rec.Status) {
			continue
		}
		if raw, ok := c["serial"]; ok {
			cond := domain.ParseCondition(raw)
			if cond.Op == domain.OpLessEqual {
				bound, _ := strconv.ParseUint(strings.TrimSpace(cond.Value.(string)), 10, 32)
				if uint64(rec.Serial) > bound {
					continue
				}
			}
		}
		out = append(out, *rec)
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
	}
	return out, nil
}

func (m *mockStorage) UpdateRecord(_ context.Context, rec *domain.Record) (*domain.Record, error) {
	stored, ok := m.records[rec.ID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	rec.Version = stored.Version + 1
	rec.Hash = domain.RecordHash(rec.RecordSetID, rec.Data)
	copied := *rec
	m.records[rec.ID] = &copied
	return rec, nil
}

func (m *mockStorage) DeleteRecord(_ context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return domain.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockStorage) CreatePool(_ context.Context, pool *domain.Pool) (*domain.Pool, error) {
	copied := *pool
	m.pools[pool.ID] = &copied
	return pool, nil
}

func (m *mockStorage) GetPool(_ context.Context, id string) (*domain.Pool, error) {
	pool, ok := m.pools[id]
	if !ok {
		return nil, domain.ErrPoolNotFound
	}
	copied := *pool
	return &copied, nil
}

func (m *mockStorage) FindPools(_ context.Context, _ domain.Criterion, _ ports.FindOptions) ([]domain.Pool, error) {
	var out []domain.Pool
	for _, pool := range m.pools {
		out = append(out, *pool)
	}
	return out, nil
}

func (m *mockStorage) DeletePool(_ context.Context, id string) error {
	delete(m.pools, id)
	return nil
}

func (m *mockStorage) CreateZoneTransferRequest(_ context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error) {
	return req, nil
}

func (m *mockStorage) GetZoneTransferRequest(_ context.Context, _ string) (*domain.ZoneTransferRequest, error) {
	return nil, domain.ErrTransferRequestNotFound
}

func (m *mockStorage) UpdateZoneTransferRequest(_ context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error) {
	return req, nil
}

func (m *mockStorage) CreateZoneTransferAccept(_ context.Context, acc *domain.ZoneTransferAccept) (*domain.ZoneTransferAccept, error) {
	return acc, nil
}

func (m *mockStorage) TransferZoneOwnership(_ context.Context, _, _ string) error { return nil }

func (m *mockStorage) UpsertServiceStatus(_ context.Context, _ *domain.ServiceStatus) error {
	return nil
}

func (m *mockStorage) FindServiceStatuses(_ context.Context, _ domain.Criterion, _ ports.FindOptions) ([]domain.ServiceStatus, error) {
	return nil, nil
}

func (m *mockStorage) Ping(_ context.Context) error { return nil }

// mockWorker records every dispatched cast and call.
type mockWorker struct {
	updates []string
	deletes []string
	xfrs    []string

	serialStatus string
	serialValue  uint32
}

func (w *mockWorker) UpdateZone(_ context.Context, zone *domain.Zone) error {
	w.updates = append(w.updates, zone.ID)
	return nil
}

func (w *mockWorker) DeleteZone(_ context.Context, zone *domain.Zone, _ bool) error {
	w.deletes = append(w.deletes, zone.ID)
	return nil
}

func (w *mockWorker) PerformZoneXfr(_ context.Context, zone *domain.Zone, _ []string) error {
	w.xfrs = append(w.xfrs, zone.ID)
	return nil
}

func (w *mockWorker) GetSerialNumber(_ context.Context, _ *domain.Zone, _ string, _ int) (string, uint32, error) {
	return w.serialStatus, w.serialValue, nil
}

func (w *mockWorker) RecoverShard(_ context.Context, _, _ int) error { return nil }
