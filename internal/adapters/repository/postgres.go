// Package repository implements the storage facade over PostgreSQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/poyrazK/zoneplane/internal/core/domain"
)

// Postgres implements ports.Storage using PostgreSQL through database/sql
// with the pgx stdlib driver.
type Postgres struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgres creates and returns a new Postgres storage facade.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, logger: logger}
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// isUniqueViolation reports whether err is a unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}

func closeRows(rows *sql.Rows, logger *slog.Logger) {
	if err := rows.Close(); err != nil {
		logger.Warn("failed to close rows", "error", err)
	}
}

// table describes the find surface of one entity table: which columns may
// appear in criteria and which may order a page.
type table struct {
	name       string
	selectList string
	filterable map[string]bool
	sortable   map[string]bool
	softDelete bool
}

// buildWhere renders a criterion into SQL predicates. Keys are processed
// in sorted order so generated statements are deterministic, which keeps
// them testable with sqlmock.
func buildWhere(c domain.Criterion, tb table, args []any) ([]string, []any, error) {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var preds []string
	for _, col := range keys {
		if !tb.filterable[col] {
			return nil, nil, fmt.Errorf("%w: cannot filter %s on %q", domain.ErrInvalidSortKey, tb.name, col)
		}
		cond := domain.ParseCondition(c[col])
		switch cond.Op {
		case domain.OpEqual:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s = $%d", col, len(args)))
		case domain.OpNotEqual:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s != $%d", col, len(args)))
		case domain.OpLess:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s < $%d", col, len(args)))
		case domain.OpLessEqual:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s <= $%d", col, len(args)))
		case domain.OpGreater:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s > $%d", col, len(args)))
		case domain.OpGreaterEqual:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s >= $%d", col, len(args)))
		case domain.OpBetween:
			args = append(args, cond.Value, cond.High)
			preds = append(preds, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, len(args)-1, len(args)))
		case domain.OpLike:
			args = append(args, cond.Value)
			preds = append(preds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		case domain.OpIn:
			items, ok := cond.Value.([]any)
			if !ok || len(items) == 0 {
				preds = append(preds, "FALSE")
				continue
			}
			holders := make([]string, len(items))
			for i, item := range items {
				args = append(args, item)
				holders[i] = fmt.Sprintf("$%d", len(args))
			}
			preds = append(preds, fmt.Sprintf("%s IN (%s)", col, strings.Join(holders, ", ")))
		}
	}
	return preds, args, nil
}
