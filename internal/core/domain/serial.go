package domain

import (
	"fmt"
	"strings"
	"time"
)

// NextSerial computes the serial a zone moves to when its pending changes
// are published. Serials track the UTC Unix timestamp but must be strictly
// increasing, so two bumps within the same wall-clock second fall back to
// incrementing by one.
func NextSerial(current uint32, now time.Time) uint32 {
	ts := uint32(now.UTC().Unix()) // #nosec G115 -- wraps in 2106, matches SOA serial arithmetic
	if ts <= current {
		return current + 1
	}
	return ts
}

// EmailToRName converts a contact email to the SOA RNAME field form:
// the @ becomes a dot and the result is fully qualified.
func EmailToRName(email string) string {
	rname := strings.Replace(email, "@", ".", 1)
	if !strings.HasSuffix(rname, ".") {
		rname += "."
	}
	return rname
}

// SOAData renders the zone's SOA record text as the space-joined fields
// "<mname> <rname> <serial> <refresh> <retry> <expire> <minimum>".
func (z *Zone) SOAData(primaryNS string) string {
	return fmt.Sprintf("%s %s %d %d %d %d %d",
		primaryNS, EmailToRName(z.Email), z.Serial, z.Refresh, z.Retry, z.Expire, z.Minimum)
}
