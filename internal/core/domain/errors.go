package domain

import (
	"errors"
	"fmt"
)

// Base error categories. Entity-specific sentinels wrap these so callers
// can match either the broad class (errors.Is(err, ErrNotFound)) or the
// exact kind (errors.Is(err, ErrZoneNotFound)).
var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

var (
	ErrZoneNotFound            = fmt.Errorf("zone %w", ErrNotFound)
	ErrDuplicateZone           = fmt.Errorf("%w: zone", ErrDuplicate)
	ErrRecordSetNotFound       = fmt.Errorf("recordset %w", ErrNotFound)
	ErrDuplicateRecordSet      = fmt.Errorf("%w: recordset", ErrDuplicate)
	ErrRecordNotFound          = fmt.Errorf("record %w", ErrNotFound)
	ErrDuplicateRecord         = fmt.Errorf("%w: record", ErrDuplicate)
	ErrPoolNotFound            = fmt.Errorf("pool %w", ErrNotFound)
	ErrDuplicatePool           = fmt.Errorf("%w: pool", ErrDuplicate)
	ErrTransferRequestNotFound = fmt.Errorf("zone transfer request %w", ErrNotFound)
	ErrTransferAcceptNotFound  = fmt.Errorf("zone transfer accept %w", ErrNotFound)
)

// Find / pagination validation failures. Never retried, surfaced to the
// caller as 4xx-equivalents.
var (
	ErrInvalidSortKey = errors.New("invalid sort key")
	ErrInvalidMarker  = errors.New("invalid pagination marker")
)

// ErrIllegalParentZone is raised when the purge re-parenting walk detects
// a loop in the persisted zone hierarchy. It aborts the affected zone's
// purge only; the rest of the batch proceeds.
var ErrIllegalParentZone = errors.New("loop detected in parent zone hierarchy")

// ErrCallTimeout is returned when a synchronous bus call receives no reply
// within its deadline. Callers may retry.
var ErrCallTimeout = errors.New("call timed out waiting for reply")

// Validation errors surfaced by the service layer.
var (
	ErrInvalidZoneName      = errors.New("invalid zone name")
	ErrInvalidRecordSet     = errors.New("invalid recordset")
	ErrCNAMEAtApex          = errors.New("CNAME recordsets may not be placed at the zone apex")
	ErrCNAMEConflict        = errors.New("CNAME recordsets may not share a name with other recordsets")
	ErrImmutableRecordSet   = errors.New("managed recordsets may not be deleted")
	ErrZonePendingDeletion  = errors.New("zone is pending deletion")
	ErrTransferComplete     = errors.New("zone transfer request is already complete")
	ErrIncorrectTransferKey = errors.New("incorrect zone transfer key")
)
