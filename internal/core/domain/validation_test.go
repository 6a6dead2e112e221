package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateZoneName(t *testing.T) {
	valid := []string{
		"example.com.",
		"sub.example.com.",
		"xn--bcher-kva.example.",
		"_dmarc.example.com.",
	}
	for _, name := range valid {
		if err := ValidateZoneName(name); err != nil {
			t.Errorf("Expected %q to be valid, got %v", name, err)
		}
	}

	invalid := []string{
		"",
		"example.com",
		"exa mple.com.",
		"example..com.",
		strings.Repeat("a", 64) + ".com.",
		strings.Repeat("abc.", 70),
	}
	for _, name := range invalid {
		err := ValidateZoneName(name)
		if err == nil {
			t.Errorf("Expected %q to be invalid", name)
			continue
		}
		if !errors.Is(err, ErrInvalidZoneName) {
			t.Errorf("Expected ErrInvalidZoneName for %q, got %v", name, err)
		}
	}
}

func TestValidateRecordSetName(t *testing.T) {
	if err := ValidateRecordSetName("example.com.", "www.example.com."); err != nil {
		t.Errorf("Expected in-zone name to validate, got %v", err)
	}
	if err := ValidateRecordSetName("example.com.", "example.com."); err != nil {
		t.Errorf("Expected apex name to validate, got %v", err)
	}
	if err := ValidateRecordSetName("example.com.", "www.other.com."); err == nil {
		t.Error("Expected out-of-zone name to fail")
	}
	if err := ValidateRecordSetName("example.com.", "www.example.com"); err == nil {
		t.Error("Expected non-FQDN name to fail")
	}
}

func TestValidateRecordSetType(t *testing.T) {
	if err := ValidateRecordSetType(TypeA); err != nil {
		t.Errorf("Expected A to be supported, got %v", err)
	}
	if err := ValidateRecordSetType(TypeSOA); err == nil {
		t.Error("Expected SOA to be rejected on user recordsets")
	}
	if err := ValidateRecordSetType(RecordType("BOGUS")); err == nil {
		t.Error("Expected unknown type to be rejected")
	}
}
