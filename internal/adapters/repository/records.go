package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

var recordsTable = table{
	name: "records",
	selectList: "id, tenant_id, recordset_id, zone_id, data, hash, status, action, managed, " +
		"managed_resource, serial, shard, version, created_at, updated_at",
	filterable: map[string]bool{
		"id": true, "tenant_id": true, "recordset_id": true, "zone_id": true,
		"status": true, "action": true, "managed": true, "serial": true, "shard": true,
		"hash": true, "data": true,
	},
	sortable: map[string]bool{"created_at": true, "updated_at": true, "data": true},
}

func scanRecord(rows *sql.Rows) (domain.Record, error) {
	var rec domain.Record
	var managedResource sql.NullString
	var serial int64
	var updatedAt sql.NullTime
	err := rows.Scan(&rec.ID, &rec.TenantID, &rec.RecordSetID, &rec.ZoneID, &rec.Data,
		&rec.Hash, &rec.Status, &rec.Action, &rec.Managed, &managedResource,
		&serial, &rec.Shard, &rec.Version, &rec.CreatedAt, &updatedAt)
	if err != nil {
		return rec, err
	}
	rec.ManagedResource = managedResource.String
	rec.Serial = uint32(serial) // #nosec G115 -- column is a 32-bit serial
	if updatedAt.Valid {
		t := updatedAt.Time
		rec.UpdatedAt = &t
	}
	return rec, nil
}

// CreateRecord inserts a record. The content hash enforces uniqueness of
// (recordset, data) pairs at the storage layer.
func (p *Postgres) CreateRecord(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	if rec.Hash == "" {
		rec.Hash = domain.RecordHash(rec.RecordSetID, rec.Data)
	}
	rec.Shard = domain.ShardForID(rec.ID)
	rec.Version = 1
	rec.CreatedAt = time.Now().UTC()
	query := `INSERT INTO records (id, tenant_id, recordset_id, zone_id, data, hash, status, action,
	          managed, managed_resource, serial, shard, version, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := p.db.ExecContext(ctx, query, rec.ID, rec.TenantID, rec.RecordSetID, rec.ZoneID,
		rec.Data, rec.Hash, rec.Status, rec.Action, rec.Managed, rec.ManagedResource,
		int64(rec.Serial), rec.Shard, rec.Version, rec.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRecord
		}
		return nil, err
	}
	return rec, nil
}

// GetRecord fetches a record by id.
func (p *Postgres) GetRecord(ctx context.Context, id string) (*domain.Record, error) {
	recs, err := find(ctx, p, recordsTable, domain.Criterion{"id": id}, ports.FindOptions{Limit: 1}, scanRecord)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, domain.ErrRecordNotFound
	}
	return &recs[0], nil
}

// FindRecords lists records matching the criterion.
func (p *Postgres) FindRecords(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Record, error) {
	return find(ctx, p, recordsTable, c, opts, scanRecord)
}

// UpdateRecord rewrites a record. A data change re-addresses the hash.
func (p *Postgres) UpdateRecord(ctx context.Context, rec *domain.Record) (*domain.Record, error) {
	rec.Hash = domain.RecordHash(rec.RecordSetID, rec.Data)
	query := `UPDATE records SET data = $2, hash = $3, status = $4, action = $5, serial = $6,
	          managed = $7, managed_resource = $8, version = version + 1, updated_at = now()
	          WHERE id = $1 RETURNING version, updated_at`
	var updatedAt sql.NullTime
	err := p.db.QueryRowContext(ctx, query, rec.ID, rec.Data, rec.Hash, rec.Status, rec.Action,
		int64(rec.Serial), rec.Managed, rec.ManagedResource).Scan(&rec.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRecord
		}
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		rec.UpdatedAt = &t
	}
	return rec, nil
}

// DeleteRecord removes a record row.
func (p *Postgres) DeleteRecord(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrRecordNotFound)
}
