package ports

import (
	"context"
	"time"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

// FindOptions carries pagination and ordering for criterion-based finds.
// Marker is the id of the last row of the previous page; results continue
// strictly after it, with ties broken by id ascending.
type FindOptions struct {
	Marker  string
	Limit   int
	SortKey string
	SortDir string // "asc" (default) or "desc"
}

// Storage is the transactional CRUD+find facade over the durable store.
// Every Update is optimistic: it is scoped by id and not-deleted, bumps
// the row version unconditionally, and reports NotFound when zero rows
// match. Unique-constraint violations surface as Duplicate errors.
type Storage interface {
	CreateZone(ctx context.Context, zone *domain.Zone) (*domain.Zone, error)
	GetZone(ctx context.Context, id string) (*domain.Zone, error)
	FindZones(ctx context.Context, c domain.Criterion, opts FindOptions) ([]domain.Zone, error)
	UpdateZone(ctx context.Context, zone *domain.Zone) (*domain.Zone, error)
	// DeleteZone soft-deletes by default: the deleted sentinel and
	// deleted_at are set while action/status move to (DELETE, PENDING)
	// until the backend confirms. hard removes the row and cascades.
	DeleteZone(ctx context.Context, id string, hard bool) error

	// Targeted single-row flag updates. Concurrent task types touch the
	// same zone row, so each mutation writes only the columns it owns.
	// TouchZone records that zone data changed: the action moves NONE ->
	// UPDATE (in-flight creates are not downgraded), status -> PENDING,
	// and increment_serial is raised, all in one statement.
	TouchZone(ctx context.Context, id string) error
	SetDelayedNotify(ctx context.Context, id string, on bool) error
	// ApplySerial atomically assigns a new serial and clears
	// increment_serial. It reports false when another worker already
	// claimed the bump.
	ApplySerial(ctx context.Context, id string, serial uint32) (bool, error)
	// ConvergeZone marks the zone (NONE, ACTIVE) only if its stored
	// serial is <= reportedSerial and it is still PENDING. Reports false
	// for stale reports.
	ConvergeZone(ctx context.Context, id string, reportedSerial uint32) (bool, error)
	MarkZoneError(ctx context.Context, id string) error
	// ReparentZones points every child of oldParentID at newParentID
	// (nil detaches) and returns the number of rows moved.
	ReparentZones(ctx context.Context, oldParentID string, newParentID *string) (int64, error)

	CreateRecordSet(ctx context.Context, rs *domain.RecordSet) (*domain.RecordSet, error)
	GetRecordSet(ctx context.Context, id string) (*domain.RecordSet, error)
	FindRecordSets(ctx context.Context, c domain.Criterion, opts FindOptions) ([]domain.RecordSet, error)
	UpdateRecordSet(ctx context.Context, rs *domain.RecordSet) (*domain.RecordSet, error)
	DeleteRecordSet(ctx context.Context, id string) error

	CreateRecord(ctx context.Context, rec *domain.Record) (*domain.Record, error)
	GetRecord(ctx context.Context, id string) (*domain.Record, error)
	FindRecords(ctx context.Context, c domain.Criterion, opts FindOptions) ([]domain.Record, error)
	UpdateRecord(ctx context.Context, rec *domain.Record) (*domain.Record, error)
	DeleteRecord(ctx context.Context, id string) error

	CreatePool(ctx context.Context, pool *domain.Pool) (*domain.Pool, error)
	GetPool(ctx context.Context, id string) (*domain.Pool, error)
	FindPools(ctx context.Context, c domain.Criterion, opts FindOptions) ([]domain.Pool, error)
	DeletePool(ctx context.Context, id string) error

	CreateZoneTransferRequest(ctx context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error)
	GetZoneTransferRequest(ctx context.Context, id string) (*domain.ZoneTransferRequest, error)
	UpdateZoneTransferRequest(ctx context.Context, req *domain.ZoneTransferRequest) (*domain.ZoneTransferRequest, error)
	CreateZoneTransferAccept(ctx context.Context, acc *domain.ZoneTransferAccept) (*domain.ZoneTransferAccept, error)
	TransferZoneOwnership(ctx context.Context, zoneID, tenantID string) error

	UpsertServiceStatus(ctx context.Context, st *domain.ServiceStatus) error
	FindServiceStatuses(ctx context.Context, c domain.Criterion, opts FindOptions) ([]domain.ServiceStatus, error)

	Ping(ctx context.Context) error
}

// WorkerClient is the outbound collaborator wrapping the nameserver
// protocol adapters. All methods are casts (no completion signal) except
// GetSerialNumber, which is a synchronous call with a timeout. A dropped
// cast is recovered by the increment_serial/delayed_notify flags staying
// set until the backend's own status report arrives.
type WorkerClient interface {
	UpdateZone(ctx context.Context, zone *domain.Zone) error
	DeleteZone(ctx context.Context, zone *domain.Zone, hard bool) error
	PerformZoneXfr(ctx context.Context, zone *domain.Zone, servers []string) error
	GetSerialNumber(ctx context.Context, zone *domain.Zone, host string, port int) (string, uint32, error)
	RecoverShard(ctx context.Context, begin, end int) error
}

// StatusReporter is the convergence entry point fed by the worker's
// backend reports.
type StatusReporter interface {
	UpdateStatus(ctx context.Context, zoneID string, status string, serial uint32, action domain.Action) error
}

// Coordinator tracks group membership for the partitioner. OnChange fires
// with the full sorted member list whenever membership changes.
type Coordinator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	MemberID() string
	OnChange(fn func(members []string))
}

// Bus provides the cast/call transport primitives. Cast is fire-and-forget;
// Call blocks for a correlated reply or times out.
type Bus interface {
	Cast(ctx context.Context, topic, method string, payload any) error
	Call(ctx context.Context, topic, method string, payload any, reply any, timeout time.Duration) error
}
