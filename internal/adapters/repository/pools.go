package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

var poolsTable = table{
	name:       "pools",
	selectList: "id, name, description, version, created_at, updated_at",
	filterable: map[string]bool{"id": true, "name": true},
	sortable:   map[string]bool{"created_at": true, "name": true},
}

func scanPool(rows *sql.Rows) (domain.Pool, error) {
	var pool domain.Pool
	var desc sql.NullString
	var updatedAt sql.NullTime
	err := rows.Scan(&pool.ID, &pool.Name, &desc, &pool.Version, &pool.CreatedAt, &updatedAt)
	if err != nil {
		return pool, err
	}
	pool.Description = desc.String
	if updatedAt.Valid {
		t := updatedAt.Time
		pool.UpdatedAt = &t
	}
	return pool, nil
}

// CreatePool inserts a pool and its nameserver list.
func (p *Postgres) CreatePool(ctx context.Context, pool *domain.Pool) (*domain.Pool, error) {
	pool.Version = 1
	pool.CreatedAt = time.Now().UTC()
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errRollback := tx.Rollback(); errRollback != nil && !errors.Is(errRollback, sql.ErrTxDone) {
			p.logger.Warn("failed to rollback transaction", "error", errRollback)
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO pools (id, name, description, version, created_at) VALUES ($1, $2, $3, $4, $5)`,
		pool.ID, pool.Name, pool.Description, pool.Version, pool.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicatePool
		}
		return nil, err
	}
	for i, ns := range pool.Nameservers {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO pool_nameservers (pool_id, hostname, priority) VALUES ($1, $2, $3)`,
			pool.ID, ns, i)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return pool, nil
}

// GetPool fetches a pool with its nameservers in priority order.
func (p *Postgres) GetPool(ctx context.Context, id string) (*domain.Pool, error) {
	pools, err := find(ctx, p, poolsTable, domain.Criterion{"id": id}, ports.FindOptions{Limit: 1}, scanPool)
	if err != nil {
		return nil, err
	}
	if len(pools) == 0 {
		return nil, domain.ErrPoolNotFound
	}
	pool := pools[0]
	if err := p.loadNameservers(ctx, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}

// FindPools lists pools matching the criterion.
func (p *Postgres) FindPools(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.Pool, error) {
	pools, err := find(ctx, p, poolsTable, c, opts, scanPool)
	if err != nil {
		return nil, err
	}
	for i := range pools {
		if err := p.loadNameservers(ctx, &pools[i]); err != nil {
			return nil, err
		}
	}
	return pools, nil
}

func (p *Postgres) loadNameservers(ctx context.Context, pool *domain.Pool) error {
	rows, err := p.db.QueryContext(ctx,
		`SELECT hostname FROM pool_nameservers WHERE pool_id = $1 ORDER BY priority`, pool.ID)
	if err != nil {
		return err
	}
	defer closeRows(rows, p.logger)
	for rows.Next() {
		var host string
		if err := rows.Scan(&host); err != nil {
			return err
		}
		pool.Nameservers = append(pool.Nameservers, host)
	}
	return rows.Err()
}

// DeletePool removes a pool and its nameservers.
func (p *Postgres) DeletePool(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM pools WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return oneRowOr(res, domain.ErrPoolNotFound)
}

// UpsertServiceStatus records an instance heartbeat, keyed by
// (service_name, hostname).
func (p *Postgres) UpsertServiceStatus(ctx context.Context, st *domain.ServiceStatus) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO service_statuses (id, service_name, hostname, status, stats, heartbeated_at, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 1, now())
		 ON CONFLICT (service_name, hostname) DO UPDATE
		 SET status = EXCLUDED.status, stats = EXCLUDED.stats,
		     heartbeated_at = EXCLUDED.heartbeated_at,
		     version = service_statuses.version + 1, updated_at = now()`,
		st.ID, st.ServiceName, st.Hostname, st.Status, st.Stats, st.HeartbeatedAt)
	return err
}

var serviceStatusesTable = table{
	name:       "service_statuses",
	selectList: "id, service_name, hostname, status, stats, heartbeated_at, version, created_at, updated_at",
	filterable: map[string]bool{"id": true, "service_name": true, "hostname": true, "status": true, "heartbeated_at": true},
	sortable:   map[string]bool{"created_at": true, "heartbeated_at": true, "hostname": true},
}

func scanServiceStatus(rows *sql.Rows) (domain.ServiceStatus, error) {
	var st domain.ServiceStatus
	var stats sql.NullString
	var updatedAt sql.NullTime
	err := rows.Scan(&st.ID, &st.ServiceName, &st.Hostname, &st.Status, &stats,
		&st.HeartbeatedAt, &st.Version, &st.CreatedAt, &updatedAt)
	if err != nil {
		return st, err
	}
	st.Stats = stats.String
	if updatedAt.Valid {
		t := updatedAt.Time
		st.UpdatedAt = &t
	}
	return st, nil
}

// FindServiceStatuses lists instance heartbeats matching the criterion.
func (p *Postgres) FindServiceStatuses(ctx context.Context, c domain.Criterion, opts ports.FindOptions) ([]domain.ServiceStatus, error) {
	return find(ctx, p, serviceStatusesTable, c, opts, scanServiceStatus)
}
