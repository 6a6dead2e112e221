package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

func newMock(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db, nil), mock
}

func TestCreateZoneDerivesShardAndSentinel(t *testing.T) {
	p, mock := newMock(t)
	zone := &domain.Zone{
		ID:     "75ea1dc6-264d-4e54-ab57-c8b29896a9e4",
		Name:   "example.com.",
		Type:   domain.ZoneTypePrimary,
		Status: domain.StatusPending,
		Action: domain.ActionCreate,
	}

	mock.ExpectExec("INSERT INTO zones").
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := p.CreateZone(context.Background(), zone)
	if err != nil {
		t.Fatalf("CreateZone failed: %v", err)
	}
	if created.Shard != 0x75e {
		t.Errorf("Expected shard %d, got %d", 0x75e, created.Shard)
	}
	if created.Deleted != domain.DeletedSentinelLive {
		t.Errorf("Expected live sentinel, got %q", created.Deleted)
	}
	if created.Version != 1 {
		t.Errorf("Expected version 1, got %d", created.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestCreateZoneMapsUniqueViolation(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec("INSERT INTO zones").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := p.CreateZone(context.Background(), &domain.Zone{ID: "z1", Name: "example.com."})
	if !errors.Is(err, domain.ErrDuplicateZone) {
		t.Errorf("Expected ErrDuplicateZone, got %v", err)
	}
}

func TestUpdateZoneBumpsVersion(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(`UPDATE zones SET .*version = version \+ 1.*RETURNING version, updated_at`).
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(5, nil))

	zone, err := p.UpdateZone(context.Background(), &domain.Zone{ID: "z1", Name: "example.com."})
	if err != nil {
		t.Fatalf("UpdateZone failed: %v", err)
	}
	if zone.Version != 5 {
		t.Errorf("Expected version 5, got %d", zone.Version)
	}
}

func TestUpdateZoneNotFoundOnZeroRows(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("UPDATE zones SET").
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}))

	_, err := p.UpdateZone(context.Background(), &domain.Zone{ID: "gone"})
	if !errors.Is(err, domain.ErrZoneNotFound) {
		t.Errorf("Expected ErrZoneNotFound, got %v", err)
	}
}

func TestDeleteZoneSoftSetsSentinelAndState(t *testing.T) {
	p, mock := newMock(t)
	id := "75ea1dc6-264d-4e54-ab57-c8b29896a9e4"
	mock.ExpectExec(`UPDATE zones SET deleted = \$2, deleted_at = now\(\), action = 'DELETE', status = 'PENDING'`).
		WithArgs(id, domain.DeletedSentinel(id)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.DeleteZone(context.Background(), id, false); err != nil {
		t.Fatalf("DeleteZone failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestDeleteZoneHardRemovesRow(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec("DELETE FROM zones WHERE id").
		WithArgs("z1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.DeleteZone(context.Background(), "z1", true); err != nil {
		t.Fatalf("DeleteZone failed: %v", err)
	}
}

func TestTouchZonePreservesInFlightCreate(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec(`UPDATE zones SET action = CASE WHEN action = 'NONE' THEN 'UPDATE' ELSE action END`).
		WithArgs("z1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := p.TouchZone(context.Background(), "z1"); err != nil {
		t.Fatalf("TouchZone failed: %v", err)
	}
}

func TestTouchZoneSkipsDeletingZone(t *testing.T) {
	p, mock := newMock(t)
	// The WHERE clause excludes zones already marked DELETE; zero rows
	// surface as not found.
	mock.ExpectExec("UPDATE zones SET action = CASE").
		WithArgs("z1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := p.TouchZone(context.Background(), "z1"); !errors.Is(err, domain.ErrZoneNotFound) {
		t.Errorf("Expected ErrZoneNotFound, got %v", err)
	}
}

func TestApplySerialClaimedOnce(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec(`UPDATE zones SET serial = \$2, increment_serial = false`).
		WithArgs("z1", int64(12345)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := p.ApplySerial(context.Background(), "z1", 12345)
	if err != nil {
		t.Fatalf("ApplySerial failed: %v", err)
	}
	if !applied {
		t.Error("Expected serial applied")
	}

	// Second worker: the flag is gone, zero rows match.
	mock.ExpectExec("UPDATE zones SET serial").
		WithArgs("z1", int64(12346)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err = p.ApplySerial(context.Background(), "z1", 12346)
	if err != nil {
		t.Fatalf("ApplySerial failed: %v", err)
	}
	if applied {
		t.Error("Expected bump already claimed")
	}
}

func TestConvergeZoneRejectsStaleReport(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec(`WHERE id = \$1 AND serial <= \$2 AND status = 'PENDING' AND increment_serial = false`).
		WithArgs("z1", int64(1500)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	converged, err := p.ConvergeZone(context.Background(), "z1", 1500)
	if err != nil {
		t.Fatalf("ConvergeZone failed: %v", err)
	}
	if converged {
		t.Error("Expected stale report to match zero rows")
	}
}

func TestReparentZonesDetaches(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectExec(`UPDATE zones SET parent_zone_id = \$2`).
		WithArgs("old-parent", nil).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := p.ReparentZones(context.Background(), "old-parent", nil)
	if err != nil {
		t.Fatalf("ReparentZones failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 children moved, got %d", n)
	}
}
