package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var validLabelRegex = regexp.MustCompile(`^[a-zA-Z0-9_]([a-zA-Z0-9-_]{0,61}[a-zA-Z0-9])?$`)

// ValidateZoneName checks if the provided zone name is a valid FQDN.
func ValidateZoneName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidZoneName)
	}
	if !strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: name must end with a dot (FQDN)", ErrInvalidZoneName)
	}
	if len(name) > 254 {
		return fmt.Errorf("%w: name exceeds 253 characters", ErrInvalidZoneName)
	}

	// Remove trailing dot for label validation
	labels := strings.Split(strings.TrimSuffix(name, "."), ".")
	for _, label := range labels {
		if len(label) > 63 {
			return fmt.Errorf("%w: label '%s' exceeds 63 characters", ErrInvalidZoneName, label)
		}
		if label == "" {
			return fmt.Errorf("%w: name contains empty label", ErrInvalidZoneName)
		}
		if !validLabelRegex.MatchString(label) {
			return fmt.Errorf("%w: label '%s' contains invalid characters", ErrInvalidZoneName, label)
		}
	}
	return nil
}

// ValidateRecordSetName checks that a recordset name is a FQDN contained
// within (or equal to) the owning zone's name.
func ValidateRecordSetName(zoneName, name string) error {
	if !strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: name must end with a dot (FQDN)", ErrInvalidRecordSet)
	}
	if name != zoneName && !strings.HasSuffix(name, "."+zoneName) {
		return fmt.Errorf("%w: name %q is not contained in zone %q", ErrInvalidRecordSet, name, zoneName)
	}
	return nil
}

// ValidateRecordSetType checks the RR type against the supported set.
func ValidateRecordSetType(t RecordType) error {
	if !SupportedRecordTypes[t] {
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidRecordSet, t)
	}
	return nil
}
