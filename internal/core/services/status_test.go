package services

import (
	"context"
	"testing"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

func TestUpdateStatusConvergesZoneAndRecords(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	storage.zones[zone.ID].Status = domain.StatusPending
	storage.zones[zone.ID].Action = domain.ActionUpdate
	rs := seedRecordSet(storage, zone, "www.example.com.", domain.TypeA)
	rec := seedRecord(storage, zone, rs, "192.0.2.1")
	storage.records[rec.ID].Status = domain.StatusPending
	storage.records[rec.ID].Action = domain.ActionCreate

	err := svc.UpdateStatus(context.Background(), zone.ID, ReportSuccess, zone.Serial, domain.ActionUpdate)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	stored := storage.zones[zone.ID]
	if stored.Action != domain.ActionNone || stored.Status != domain.StatusActive {
		t.Errorf("Expected zone (NONE, ACTIVE), got (%s, %s)", stored.Action, stored.Status)
	}
	storedRec := storage.records[rec.ID]
	if storedRec.Action != domain.ActionNone || storedRec.Status != domain.StatusActive {
		t.Errorf("Expected record (NONE, ACTIVE), got (%s, %s)", storedRec.Action, storedRec.Status)
	}
}

func TestUpdateStatusStaleReportDoesNotConverge(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	storage.zones[zone.ID].Status = domain.StatusPending
	storage.zones[zone.ID].Action = domain.ActionUpdate
	storage.zones[zone.ID].Serial = 2000

	// Report carries a serial older than the newest edit.
	err := svc.UpdateStatus(context.Background(), zone.ID, ReportSuccess, 1500, domain.ActionUpdate)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	stored := storage.zones[zone.ID]
	if stored.Status != domain.StatusPending {
		t.Errorf("Expected zone to stay PENDING on stale report, got %s", stored.Status)
	}
}

func TestUpdateStatusPendingBumpDoesNotConverge(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	storage.zones[zone.ID].Status = domain.StatusPending
	storage.zones[zone.ID].Action = domain.ActionCreate
	storage.zones[zone.ID].Serial = 1500
	rs := seedRecordSet(storage, zone, "www.example.com.", domain.TypeA)
	rec := seedRecord(storage, zone, rs, "192.0.2.1")
	storage.records[rec.ID].Status = domain.StatusPending
	storage.records[rec.ID].Action = domain.ActionCreate
	storage.records[rec.ID].Serial = 1500

	// An edit after the dispatch raised the flag but the serial bump has
	// not been applied, so the report's serial still equals the zone's.
	storage.zones[zone.ID].IncrementSerial = true

	if err := svc.UpdateStatus(context.Background(), zone.ID, ReportSuccess, 1500, domain.ActionCreate); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	stored := storage.zones[zone.ID]
	if stored.Status != domain.StatusPending || stored.Action != domain.ActionCreate {
		t.Errorf("Expected zone to stay (CREATE, PENDING) while a bump is owed, got (%s, %s)",
			stored.Action, stored.Status)
	}
	if storage.records[rec.ID].Status != domain.StatusPending {
		t.Error("Expected record of the unpublished edit to stay PENDING")
	}
}

func TestUpdateStatusStaleReportLeavesNewerRecordsPending(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	storage.zones[zone.ID].Status = domain.StatusPending
	storage.zones[zone.ID].Serial = 2000
	rs := seedRecordSet(storage, zone, "www.example.com.", domain.TypeA)

	old := seedRecord(storage, zone, rs, "192.0.2.1")
	storage.records[old.ID].Status = domain.StatusPending
	storage.records[old.ID].Action = domain.ActionCreate
	storage.records[old.ID].Serial = 1500

	newer := seedRecord(storage, zone, rs, "192.0.2.2")
	storage.records[newer.ID].Status = domain.StatusPending
	storage.records[newer.ID].Action = domain.ActionCreate
	storage.records[newer.ID].Serial = 2000

	if err := svc.UpdateStatus(context.Background(), zone.ID, ReportSuccess, 1500, domain.ActionUpdate); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if storage.records[old.ID].Status != domain.StatusActive {
		t.Error("Expected covered record to converge")
	}
	if storage.records[newer.ID].Status != domain.StatusPending {
		t.Error("Expected newer record to stay PENDING")
	}
}

func TestUpdateStatusFailureParksZoneInError(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	storage.zones[zone.ID].Status = domain.StatusPending
	storage.zones[zone.ID].Action = domain.ActionUpdate

	if err := svc.UpdateStatus(context.Background(), zone.ID, ReportError, 0, domain.ActionUpdate); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	stored := storage.zones[zone.ID]
	if stored.Status != domain.StatusError {
		t.Errorf("Expected ERROR, got %s", stored.Status)
	}
	if stored.Action != domain.ActionUpdate {
		t.Errorf("Expected action preserved, got %s", stored.Action)
	}
}

func TestUpdateStatusSuccessfulDeleteRemovesZone(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	rs := seedRecordSet(storage, zone, "www.example.com.", domain.TypeA)
	seedRecord(storage, zone, rs, "192.0.2.1")
	if _, err := svc.DeleteZone(context.Background(), zone.ID); err != nil {
		t.Fatalf("DeleteZone failed: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), zone.ID, ReportSuccess, 0, domain.ActionDelete); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if storage.zones[zone.ID] != nil {
		t.Error("Expected zone row removed")
	}
	if len(storage.records) != 0 || len(storage.recordSets) != 0 {
		t.Error("Expected recordsets and records cascaded")
	}
}

func TestUpdateStatusNoZoneCountsAsDeleteSuccess(t *testing.T) {
	svc, storage, _ := newTestService(t)
	zone := seedActiveZone(storage, "example.com.")
	if _, err := svc.DeleteZone(context.Background(), zone.ID); err != nil {
		t.Fatalf("DeleteZone failed: %v", err)
	}

	if err := svc.UpdateStatus(context.Background(), zone.ID, ReportNoZone, 0, domain.ActionDelete); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if storage.zones[zone.ID] != nil {
		t.Error("Expected zone row removed on NO_ZONE delete report")
	}
}

func TestUpdateStatusMissingZoneIsBenign(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.UpdateStatus(context.Background(), "missing", ReportSuccess, 0, domain.ActionUpdate); err != nil {
		t.Errorf("Expected report for missing zone to be benign, got %v", err)
	}
}
