package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

// CreateZoneTransferRequest offers a zone to another tenant. The returned
// request carries a one-time key the receiving tenant must present.
func (s *Service) CreateZoneTransferRequest(ctx context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error) {
	zone, err := s.storage.GetZone(ctx, req.ZoneID)
	if err != nil {
		return nil, err
	}
	if zone.IsDeleted() || zone.Action == domain.ActionDelete {
		return nil, domain.ErrZonePendingDeletion
	}
	req.ID = uuid.New().String()
	req.ZoneName = zone.Name
	req.TenantID = zone.TenantID
	req.Key = uuid.New().String()[:8]
	req.Status = domain.TransferStatusActive
	return s.storage.CreateZoneTransferRequest(ctx, req)
}

// AcceptZoneTransfer consumes an active transfer request, moving the zone
// and everything it owns to the accepting tenant.
func (s *Service) AcceptZoneTransfer(ctx context.Context, requestID, key, tenantID string) (*domain.ZoneTransferAccept, error) {
	req, err := s.storage.GetZoneTransferRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.TransferStatusActive {
		return nil, domain.ErrTransferComplete
	}
	if req.Key != key {
		return nil, domain.ErrIncorrectTransferKey
	}
	if req.TargetTenantID != "" && req.TargetTenantID != tenantID {
		return nil, domain.ErrIncorrectTransferKey
	}

	if err := s.storage.TransferZoneOwnership(ctx, req.ZoneID, tenantID); err != nil {
		return nil, err
	}

	req.Status = domain.TransferStatusComplete
	req.TargetTenantID = tenantID
	if _, err := s.storage.UpdateZoneTransferRequest(ctx, req); err != nil {
		return nil, err
	}

	acc := &domain.ZoneTransferAccept{
		ID:                    uuid.New().String(),
		ZoneTransferRequestID: req.ID,
		ZoneID:                req.ZoneID,
		TenantID:              tenantID,
		Key:                   key,
		Status:                domain.TransferStatusComplete,
	}
	return s.storage.CreateZoneTransferAccept(ctx, acc)
}
