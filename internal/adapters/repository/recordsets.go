package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

var recordSetsTable = table{
	name:       "recordsets",
	selectList: "id, tenant_id, zone_id, zone_shard, name, type, ttl, version, created_at, updated_at",
	filterable: map[string]bool{
		"id": true, "tenant_id": true, "zone_id": true, "zone_shard": true,
		"name": true, "type": true, "ttl": true,
	},
	sortable: map[string]bool{"created_at": true, "updated_at": true, "name": true, "type": true},
}

func scanRecordSet(rows *sql.Rows) (domain.RecordSet, error) {
	var rs domain.RecordSet
	var ttl sql.NullInt64
	var updatedAt sql.NullTime
	err := rows.Scan(&rs.ID, &rs.TenantID, &rs.ZoneID, &rs.ZoneShard, &rs.Name, &rs.Type,
		&ttl, &rs.Version, &rs.CreatedAt, &updatedAt)
	if err != nil {
		return rs, err
	}
	if ttl.Valid {
		t := int(ttl.Int64)
		rs.TTL = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		rs.UpdatedAt = &t
	}
	return rs, nil
}

// CreateRecordSet inserts a recordset. The zone_shard column is the owning
// zone's shard so periodic sweeps can scope recordsets to a shard range.
func (p *Postgres) CreateRecordSet(ctx context.Context, rs *domain.RecordSet) (*domain.RecordSet, error) {
	rs.Version = 1
	rs.CreatedAt = time.Now().UTC()
	query := `INSERT INTO recordsets (id, tenant_id, zone_id, zone_shard, name, type, ttl, version, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := p.db.ExecContext(ctx, query, rs.ID, rs.TenantID, rs.ZoneID, rs.ZoneShard,
		rs.Name, rs.Type, rs.TTL, rs.Version, rs.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRecordSet
		}
		return nil, err
	}
	return rs, nil
}

// GetRecordSet fetches a recordset with its records.
func (p *Postgres) GetRecordSet(ctx context.Context, id string) (*domain.RecordSet, error) {
	sets, err := find(ctx, p, recordSetsTable, domain.Criterion{"id": id}, ports.FindOptions{Limit: 1}, scanRecordSet)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, domain.ErrRecordSetNotFound
	}
	rs := sets[0]
	if err := p.loadRecords(ctx, &rs); err != nil {
		return nil, err
	}
	return &rs, nil
}

// FindRecordSets lists recordsets matching the criterion, each with its
// record collection loaded.
func (p *Postgres) FindRecordSets(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.RecordSet, error) {
	sets, err := find(ctx, p, recordSetsTable, c, opts, scanRecordSet)
	if err != nil {
		return nil, err
	}
	for i := range sets {
		if err := p.loadRecords(ctx, &sets[i]); err != nil {
			return nil, err
		}
	}
	return sets, nil
}

func (p *Postgres) loadRecords(ctx context.Context, rs *domain.RecordSet) error {
	recs, err := p.FindRecords(ctx, domain.Criterion{"recordset_id": rs.ID},
		ports.FindOptions{SortKey: "created_at"})
	if err != nil {
		return err
	}
	rs.Records = recs
	return nil
}

// UpdateRecordSet rewrites the recordset's mutable attributes (ttl).
func (p *Postgres) UpdateRecordSet(ctx context.Context, rs *domain.RecordSet) (*domain.RecordSet, error) {
	query := `UPDATE recordsets SET ttl = $2, version = version + 1, updated_at = now()
	          WHERE id = $1 RETURNING version, updated_at`
	var updatedAt sql.NullTime
	err := p.db.QueryRowContext(ctx, query, rs.ID, rs.TTL).Scan(&rs.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRecordSetNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateRecordSet
		}
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		rs.UpdatedAt = &t
	}
	return rs, nil
}

// DeleteRecordSet removes the recordset; records cascade.
func (p *Postgres) DeleteRecordSet(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM recordsets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrRecordSetNotFound)
}
