package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

var zonesTable = table{
	name: "zones",
	selectList: "id, tenant_id, name, email, type, ttl, serial, refresh, retry, expire, minimum, " +
		"status, action, pool_id, parent_zone_id, shard, delayed_notify, increment_serial, " +
		"deleted, deleted_at, version, created_at, updated_at",
	filterable: map[string]bool{
		"id": true, "tenant_id": true, "name": true, "email": true, "type": true,
		"status": true, "action": true, "pool_id": true, "parent_zone_id": true,
		"shard": true, "delayed_notify": true, "increment_serial": true,
		"deleted": true, "deleted_at": true, "serial": true, "updated_at": true,
	},
	sortable: map[string]bool{
		"created_at": true, "updated_at": true, "name": true, "serial": true, "shard": true,
	},
	softDelete: true,
}

func scanZone(rows *sql.Rows) (domain.Zone, error) {
	var z domain.Zone
	var parentID, email sql.NullString
	var deletedAt, updatedAt sql.NullTime
	err := rows.Scan(&z.ID, &z.TenantID, &z.Name, &email, &z.Type, &z.TTL, &z.Serial,
		&z.Refresh, &z.Retry, &z.Expire, &z.Minimum, &z.Status, &z.Action, &z.PoolID,
		&parentID, &z.Shard, &z.DelayedNotify, &z.IncrementSerial,
		&z.Deleted, &deletedAt, &z.Version, &z.CreatedAt, &updatedAt)
	if err != nil {
		return z, err
	}
	z.Email = email.String
	if parentID.Valid {
		z.ParentZoneID = &parentID.String
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		z.DeletedAt = &t
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		z.UpdatedAt = &t
	}
	return z, nil
}

// CreateZone inserts a zone. The shard is derived from the id at insert
// time and never changes for the lifetime of the row.
func (p *Postgres) CreateZone(ctx context.Context, zone *domain.Zone) (*domain.Zone, error) {
	zone.Shard = domain.ShardForID(zone.ID)
	zone.Deleted = domain.DeletedSentinelLive
	zone.Version = 1
	zone.CreatedAt = time.Now().UTC()

	query := `INSERT INTO zones (id, tenant_id, name, email, type, ttl, serial, refresh, retry,
	          expire, minimum, status, action, pool_id, parent_zone_id, shard, delayed_notify,
	          increment_serial, deleted, version, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := p.db.ExecContext(ctx, query, zone.ID, zone.TenantID, zone.Name, zone.Email,
		zone.Type, zone.TTL, zone.Serial, zone.Refresh, zone.Retry, zone.Expire, zone.Minimum,
		zone.Status, zone.Action, zone.PoolID, zone.ParentZoneID, zone.Shard,
		zone.DelayedNotify, zone.IncrementSerial, zone.Deleted, zone.Version, zone.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateZone
		}
		return nil, err
	}

	for _, master := range zone.Masters {
		if _, err := p.db.ExecContext(ctx,
			`INSERT INTO zone_masters (zone_id, address) VALUES ($1, $2)`, zone.ID, master); err != nil {
			return nil, err
		}
	}
	return zone, nil
}

// GetZone fetches a zone by id, including its masters list. Soft-deleted
// zones are returned: the delete/purge paths still operate on them.
func (p *Postgres) GetZone(ctx context.Context, id string) (*domain.Zone, error) {
	rows, err := p.db.QueryContext(ctx,
		"SELECT "+zonesTable.selectList+" FROM zones WHERE id = $1", id)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, p.logger)
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrZoneNotFound
	}
	zone, err := scanZone(rows)
	if err != nil {
		return nil, err
	}
	if zone.Type == domain.ZoneTypeSecondary {
		if err := p.loadMasters(ctx, &zone); err != nil {
			return nil, err
		}
	}
	return &zone, nil
}

// FindZones lists zones matching the criterion. Soft-deleted rows are
// excluded unless the criterion constrains the deleted column itself.
func (p *Postgres) FindZones(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Zone, error) {
	zones, err := find(ctx, p, zonesTable, c, opts, scanZone)
	if err != nil {
		return nil, err
	}
	for i := range zones {
		if zones[i].Type == domain.ZoneTypeSecondary {
			if err := p.loadMasters(ctx, &zones[i]); err != nil {
				return nil, err
			}
		}
	}
	return zones, nil
}

func (p *Postgres) loadMasters(ctx context.Context, zone *domain.Zone) error {
	rows, err := p.db.QueryContext(ctx,
		`SELECT address FROM zone_masters WHERE zone_id = $1 ORDER BY address`, zone.ID)
	if err != nil {
		return err
	}
	defer closeRows(rows, p.logger)
	zone.Masters = zone.Masters[:0]
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return err
		}
		zone.Masters = append(zone.Masters, addr)
	}
	return rows.Err()
}

// UpdateZone rewrites the zone's mutable attributes. The serial and the
// increment_serial/delayed_notify flags are deliberately excluded: they
// belong to the targeted single-purpose updates below so concurrent task
// types never clobber each other.
func (p *Postgres) UpdateZone(ctx context.Context, zone *domain.Zone) (*domain.Zone, error) {
	query := `UPDATE zones SET name = $2, email = $3, ttl = $4, refresh = $5, retry = $6,
	          expire = $7, minimum = $8, status = $9, action = $10, pool_id = $11,
	          parent_zone_id = $12, version = version + 1, updated_at = now()
	          WHERE id = $1 AND deleted = '0'
	          RETURNING version, updated_at`
	var updatedAt sql.NullTime
	err := p.db.QueryRowContext(ctx, query, zone.ID, zone.Name, zone.Email, zone.TTL,
		zone.Refresh, zone.Retry, zone.Expire, zone.Minimum, zone.Status, zone.Action,
		zone.PoolID, zone.ParentZoneID).Scan(&zone.Version, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrZoneNotFound
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateZone
		}
		return nil, err
	}
	if updatedAt.Valid {
		t := updatedAt.Time
		zone.UpdatedAt = &t
	}
	return zone, nil
}

// DeleteZone soft-deletes by default: the deleted sentinel frees the name
// for re-creation while the row survives until the purge task removes it.
// With hard=true the row is removed and recordsets/records cascade.
func (p *Postgres) DeleteZone(ctx context.Context, id string, hard bool) error {
	if hard {
		res, err := p.db.ExecContext(ctx, `DELETE FROM zones WHERE id = $1`, id)
		if err != nil {
			return err
		}
		return oneRowOr(res, domain.ErrZoneNotFound)
	}
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET deleted = $2, deleted_at = now(), action = 'DELETE', status = 'PENDING',
		 version = version + 1, updated_at = now()
		 WHERE id = $1 AND deleted = '0'`, id, domain.DeletedSentinel(id))
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrZoneNotFound)
}

// TouchZone records that zone data changed: NONE becomes UPDATE (in-flight
// creates are not downgraded), status returns to PENDING and the
// increment_serial flag is raised, all in a single statement.
func (p *Postgres) TouchZone(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET action = CASE WHEN action = 'NONE' THEN 'UPDATE' ELSE action END,
		 status = 'PENDING', increment_serial = true, version = version + 1, updated_at = now()
		 WHERE id = $1 AND deleted = '0' AND action != 'DELETE'`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrZoneNotFound)
}

// SetDelayedNotify raises or clears the delayed_notify flag and nothing
// else. increment_serial is never touched here.
func (p *Postgres) SetDelayedNotify(ctx context.Context, id string, on bool) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET delayed_notify = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND deleted = '0'`, id, on)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrZoneNotFound)
}

// ApplySerial atomically assigns the new serial and clears
// increment_serial. Two concurrent increment workers cannot both win: the
// WHERE clause admits only the row still carrying the flag.
func (p *Postgres) ApplySerial(ctx context.Context, id string, serial uint32) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET serial = $2, increment_serial = false, version = version + 1, updated_at = now()
		 WHERE id = $1 AND increment_serial = true`, id, int64(serial))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ConvergeZone applies a successful backend report: the zone becomes
// (NONE, ACTIVE) only if its stored serial is covered by the reported
// serial and it is still PENDING. A report older than the newest edit
// matches zero rows and the zone stays PENDING for the next cycle. A
// raised increment_serial flag means an edit landed after the dispatch
// without advancing the serial yet, so the report cannot cover it and
// the zone likewise stays PENDING.
func (p *Postgres) ConvergeZone(ctx context.Context, id string, reportedSerial uint32) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET action = 'NONE', status = 'ACTIVE', version = version + 1, updated_at = now()
		 WHERE id = $1 AND serial <= $2 AND status = 'PENDING' AND increment_serial = false AND deleted = '0'`,
		id, int64(reportedSerial))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// MarkZoneError surfaces a failed backend report.
func (p *Postgres) MarkZoneError(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET status = 'ERROR', version = version + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrZoneNotFound)
}

// ReparentZones moves every child of oldParentID to newParentID (nil
// detaches them) and returns the number of children moved. Soft-deleted
// children move too; they may be purged by a later pass.
func (p *Postgres) ReparentZones(ctx context.Context, oldParentID string, newParentID *string) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE zones SET parent_zone_id = $2, version = version + 1, updated_at = now()
		 WHERE parent_zone_id = $1`, oldParentID, newParentID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func oneRowOr(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
