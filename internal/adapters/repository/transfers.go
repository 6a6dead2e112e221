package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

// CreateZoneTransferRequest inserts a transfer offer.
func (p *Postgres) CreateZoneTransferRequest(ctx context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error) {
	req.Version = 1
	req.CreatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO zone_transfer_requests (id, zone_id, zone_name, tenant_id, target_tenant_id,
		 description, key, status, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID, req.ZoneID, req.ZoneName, req.TenantID, nullIfEmpty(req.TargetTenantID),
		req.Description, req.Key, req.Status, req.Version, req.CreatedAt)
	if err != nil {
		return nil, err
	}
	return req, nil
}

// GetZoneTransferRequest fetches a transfer request by id.
func (p *Postgres) GetZoneTransferRequest(ctx context.Context, id string) (*domain.ZoneTransferRequest, error) {
	var req domain.ZoneTransferRequest
	var target sql.NullString
	var desc sql.NullString
	var updatedAt sql.NullTime
	err := p.db.QueryRowContext(ctx,
		`SELECT id, zone_id, zone_name, tenant_id, target_tenant_id, description, key, status,
		 version, created_at, updated_at FROM zone_transfer_requests WHERE id = $1`, id).
		Scan(&req.ID, &req.ZoneID, &req.ZoneName, &req.TenantID, &target, &desc, &req.Key,
			&req.Status, &req.Version, &req.CreatedAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransferRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	req.TargetTenantID = target.String
	req.Description = desc.String
	if updatedAt.Valid {
		t := updatedAt.Time
		req.UpdatedAt = &t
	}
	return &req, nil
}

// UpdateZoneTransferRequest rewrites a transfer request's status fields.
func (p *Postgres) UpdateZoneTransferRequest(ctx context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error) {
	err := p.db.QueryRowContext(ctx,
		`UPDATE zone_transfer_requests SET status = $2, target_tenant_id = $3,
		 version = version + 1, updated_at = now() WHERE id = $1 RETURNING version`,
		req.ID, req.Status, nullIfEmpty(req.TargetTenantID)).Scan(&req.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransferRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// CreateZoneTransferAccept inserts a transfer acceptance.
func (p *Postgres) CreateZoneTransferAccept(ctx context.Context, acc *domain.ZoneTransferAccept) (*domain.ZoneTransferAccept, error) {
	acc.Version = 1
	acc.CreatedAt = time.Now().UTC()
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO zone_transfer_accepts (id, zone_transfer_request_id, zone_id, tenant_id, key, status, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		acc.ID, acc.ZoneTransferRequestID, acc.ZoneID, acc.TenantID, acc.Key, acc.Status,
		acc.Version, acc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return acc, nil
}

// TransferZoneOwnership moves a zone and everything it owns to a new
// tenant in one transaction.
func (p *Postgres) TransferZoneOwnership(ctx context.Context, zoneID, tenantID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if errRollback := tx.Rollback(); errRollback != nil && !errors.Is(errRollback, sql.ErrTxDone) {
			p.logger.Warn("failed to rollback transaction", "error", errRollback)
		}
	}()

	res, err := tx.ExecContext(ctx,
		`UPDATE zones SET tenant_id = $2, version = version + 1, updated_at = now()
		 WHERE id = $1 AND deleted = '0'`, zoneID, tenantID)
	if err != nil {
		return err
	}
	if err := oneRowOr(res, domain.ErrZoneNotFound); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE recordsets SET tenant_id = $2, version = version + 1, updated_at = now()
		 WHERE zone_id = $1`, zoneID, tenantID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET tenant_id = $2, version = version + 1, updated_at = now()
		 WHERE zone_id = $1`, zoneID, tenantID); err != nil {
		return err
	}
	return tx.Commit()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
