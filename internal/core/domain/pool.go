package domain

import "time"

// Pool is a named group of backend nameservers serving a set of zones.
type Pool struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Nameservers []string   `json:"ns_records,omitempty"` // FQDNs, priority order
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// TransferStatus tracks a zone ownership transfer between tenants.
type TransferStatus string

const (
	TransferStatusActive   TransferStatus = "ACTIVE"
	TransferStatusComplete TransferStatus = "COMPLETE"
)

// ZoneTransferRequest offers a zone to another tenant.
type ZoneTransferRequest struct {
	ID             string         `json:"id"`
	ZoneID         string         `json:"zone_id"`
	ZoneName       string         `json:"zone_name"`
	TenantID       string         `json:"tenant_id"`
	TargetTenantID string         `json:"target_tenant_id,omitempty"`
	Description    string         `json:"description,omitempty"`
	Key            string         `json:"-"`
	Status         TransferStatus `json:"status"`
	Version        int            `json:"version"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      *time.Time     `json:"updated_at,omitempty"`
}

// ZoneTransferAccept consumes a transfer request and moves zone ownership.
type ZoneTransferAccept struct {
	ID                    string         `json:"id"`
	ZoneTransferRequestID string         `json:"zone_transfer_request_id"`
	ZoneID                string         `json:"zone_id"`
	TenantID              string         `json:"tenant_id"`
	Key                   string         `json:"-"`
	Status                TransferStatus `json:"status"`
	Version               int            `json:"version"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             *time.Time     `json:"updated_at,omitempty"`
}
