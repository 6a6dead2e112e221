package domain

import (
	"crypto/md5" // #nosec G501 -- content addressing, not security
	"encoding/hex"
	"time"
)

// RecordType represents the type of a DNS recordset (e.g., A, AAAA, MX).
type RecordType string

const (
	TypeA     RecordType = "A"
	TypeAAAA  RecordType = "AAAA"
	TypeCNAME RecordType = "CNAME"
	TypeMX    RecordType = "MX"
	TypeTXT   RecordType = "TXT"
	TypeNS    RecordType = "NS"
	TypeSOA   RecordType = "SOA"
	TypePTR   RecordType = "PTR"
	TypeSRV   RecordType = "SRV"
	TypeCAA   RecordType = "CAA"
)

// SupportedRecordTypes lists the RR types accepted on user-created recordsets.
var SupportedRecordTypes = map[RecordType]bool{
	TypeA: true, TypeAAAA: true, TypeCNAME: true, TypeMX: true,
	TypeTXT: true, TypeNS: true, TypePTR: true, TypeSRV: true, TypeCAA: true,
}

// RecordSet is a named, typed group of records sharing (zone, name, type).
// SOA and NS recordsets at the apex are managed by the system.
type RecordSet struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	ZoneID    string     `json:"zone_id"`
	ZoneShard int        `json:"-"`
	Name      string     `json:"name"`
	Type      RecordType `json:"type"`
	TTL       *int       `json:"ttl,omitempty"` // nil inherits the zone TTL
	Records   []Record   `json:"records,omitempty"`
	Version   int        `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Record is a single RR value within a recordset.
type Record struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	RecordSetID     string     `json:"recordset_id"`
	ZoneID          string     `json:"zone_id"`
	Data            string     `json:"data"`
	Hash            string     `json:"-"`
	Status          Status     `json:"status"`
	Action          Action     `json:"action"`
	Managed         bool       `json:"managed"`
	ManagedResource string     `json:"managed_resource,omitempty"`
	Serial          uint32     `json:"serial"`
	Shard           int        `json:"-"`
	Version         int        `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

// RecordHash content-addresses a record within its recordset. The hash
// column carries a unique index, preventing duplicate (recordset, data)
// pairs at the storage layer.
func RecordHash(recordSetID, data string) string {
	sum := md5.Sum([]byte(recordSetID + ":" + data)) // #nosec G401
	return hex.EncodeToString(sum[:])
}
