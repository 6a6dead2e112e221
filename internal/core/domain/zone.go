// Package domain contains the core business entities for zoneplane.
package domain

import (
	"time"
)

// Action describes the pending operation a backend still has to apply.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
	ActionNone   Action = "NONE"
)

// Status describes the convergence state of an entity relative to the backends.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusActive  Status = "ACTIVE"
	StatusError   Status = "ERROR"
	StatusDeleted Status = "DELETED"
)

// ZoneType distinguishes how a zone is sourced and served.
type ZoneType string

const (
	// ZoneTypePrimary is an authoritative zone edited through this control plane.
	ZoneTypePrimary ZoneType = "PRIMARY"
	// ZoneTypeSecondary is a zone transferred in from external masters.
	ZoneTypeSecondary ZoneType = "SECONDARY"
	// ZoneTypeCatalog is an RFC 9432 catalog zone listing a pool's member zones.
	ZoneTypeCatalog ZoneType = "CATALOG"
)

// DeletedSentinelLive is the value of the deleted column on a live row.
// Soft-deleted rows hold the entity id with hyphens stripped so that the
// compound uniqueness constraint (name, deleted, pool_id) frees the name
// for re-creation.
const DeletedSentinelLive = "0"

// Zone represents a DNS zone managed by the control plane.
type Zone struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Name            string     `json:"name"` // FQDN with trailing dot
	Email           string     `json:"email"`
	Type            ZoneType   `json:"type"`
	TTL             int        `json:"ttl"`
	Serial          uint32     `json:"serial"`
	Refresh         int        `json:"refresh"`
	Retry           int        `json:"retry"`
	Expire          int        `json:"expire"`
	Minimum         int        `json:"minimum"`
	Status          Status     `json:"status"`
	Action          Action     `json:"action"`
	PoolID          string     `json:"pool_id"`
	ParentZoneID    *string    `json:"parent_zone_id,omitempty"`
	Shard           int        `json:"shard"`
	DelayedNotify   bool       `json:"delayed_notify"`
	IncrementSerial bool       `json:"increment_serial"`
	Masters         []string   `json:"masters,omitempty"` // SECONDARY only
	Deleted         string     `json:"-"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// IsDeleted reports whether the zone has been soft-deleted.
func (z *Zone) IsDeleted() bool {
	return z.Deleted != DeletedSentinelLive
}

// ServiceStatus is a heartbeat row persisted by every running instance so
// operators can see cluster membership through the API.
type ServiceStatus struct {
	ID            string     `json:"id"`
	ServiceName   string     `json:"service_name"`
	Hostname      string     `json:"hostname"`
	Status        string     `json:"status"`
	Stats         string     `json:"stats,omitempty"`
	HeartbeatedAt time.Time  `json:"heartbeated_at"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}
