package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

func poolColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "description", "version", "created_at", "updated_at"})
}

func TestFindRejectsUnknownSortKey(t *testing.T) {
	p, _ := newMock(t)
	_, err := p.FindPools(context.Background(), domain.Criterion{}, ports.FindOptions{SortKey: "nonsense"})
	if !errors.Is(err, domain.ErrInvalidSortKey) {
		t.Errorf("Expected ErrInvalidSortKey, got %v", err)
	}
}

func TestFindRejectsUnknownSortDirection(t *testing.T) {
	p, _ := newMock(t)
	_, err := p.FindPools(context.Background(), domain.Criterion{}, ports.FindOptions{SortDir: "sideways"})
	if !errors.Is(err, domain.ErrInvalidSortKey) {
		t.Errorf("Expected ErrInvalidSortKey, got %v", err)
	}
}

func TestFindRejectsUnfilterableColumn(t *testing.T) {
	p, _ := newMock(t)
	_, err := p.FindPools(context.Background(), domain.Criterion{"secret": "x"}, ports.FindOptions{})
	if err == nil {
		t.Error("Expected unfilterable column to be rejected")
	}
}

func TestFindInvalidMarker(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("SELECT created_at FROM pools WHERE id").
		WithArgs("bogus").
		WillReturnError(sql.ErrNoRows)

	_, err := p.FindPools(context.Background(), domain.Criterion{}, ports.FindOptions{Marker: "bogus"})
	if !errors.Is(err, domain.ErrInvalidMarker) {
		t.Errorf("Expected ErrInvalidMarker, got %v", err)
	}
}

func TestFindMarkerContinuesAfterTuple(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery("SELECT name FROM pools WHERE id").
		WithArgs("pool-5").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("default"))
	// Page continues strictly after (sortval, id): ties on the sort key
	// break by id ascending.
	mock.ExpectQuery(`\(name > \$1 OR \(name = \$1 AND id > \$2\)\) ORDER BY name asc, id ASC LIMIT \$3`).
		WithArgs("default", "pool-5", 10).
		WillReturnRows(poolColumns())

	_, err := p.FindPools(context.Background(), domain.Criterion{},
		ports.FindOptions{Marker: "pool-5", SortKey: "name", Limit: 10})
	if err != nil {
		t.Fatalf("FindPools failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestFindZonesFiltersSoftDeletedByDefault(t *testing.T) {
	p, mock := newMock(t)
	mock.ExpectQuery(`FROM zones WHERE deleted = '0' ORDER BY created_at asc, id ASC`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := p.FindZones(context.Background(), domain.Criterion{}, ports.FindOptions{}); err != nil {
		t.Fatalf("FindZones failed: %v", err)
	}
}

func TestFindZonesDeletedCriterionOverridesFilter(t *testing.T) {
	p, mock := newMock(t)
	// Purge queries constrain deleted themselves; no implicit filter.
	mock.ExpectQuery(`FROM zones WHERE deleted != \$1 AND deleted_at <= \$2 AND shard BETWEEN \$3 AND \$4`).
		WithArgs("0", "2026-08-01T00:00:00Z", "0", "2047").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := p.FindZones(context.Background(), domain.Criterion{
		"deleted":    "!0",
		"deleted_at": "<=2026-08-01T00:00:00Z",
		"shard":      domain.Between(0, 2047),
	}, ports.FindOptions{})
	if err != nil {
		t.Fatalf("FindZones failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
