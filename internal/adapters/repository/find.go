package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/poyrazK/zoneplane/internal/core/domain"
	"github.com/poyrazK/zoneplane/internal/core/ports"
)

// find runs a criterion-scoped, marker-paginated query against tb and
// scans each row with scan. The marker id is resolved to its sort-key
// value and the page continues strictly after (sortval, id); ties break
// by id ascending so pages never duplicate or skip rows under concurrent
// inserts.
func find[T any](ctx context.Context, p *Postgres, tb table, c domain.Criterion, opts ports.FindOptions, scan func(*sql.Rows) (T, error)) ([]T, error) {
	sortKey := opts.SortKey
	if sortKey == "" {
		sortKey = "created_at"
	}
	if !tb.sortable[sortKey] {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSortKey, sortKey)
	}
	sortDir := strings.ToLower(opts.SortDir)
	switch sortDir {
	case "":
		sortDir = "asc"
	case "asc", "desc":
	default:
		return nil, fmt.Errorf("%w: sort direction %q", domain.ErrInvalidSortKey, opts.SortDir)
	}

	var args []any
	var preds []string
	if tb.softDelete {
		if _, ok := c["deleted"]; !ok {
			preds = append(preds, "deleted = '0'")
		}
	}
	preds, args, err := buildWhereInto(c, tb, preds, args)
	if err != nil {
		return nil, err
	}

	if opts.Marker != "" {
		var markerVal any
		row := p.db.QueryRowContext(ctx,
			fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", sortKey, tb.name), opts.Marker)
		if err := row.Scan(&markerVal); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMarker, opts.Marker)
			}
			return nil, err
		}
		cmp := ">"
		if sortDir == "desc" {
			cmp = "<"
		}
		args = append(args, markerVal)
		sortArg := len(args)
		args = append(args, opts.Marker)
		preds = append(preds, fmt.Sprintf("(%s %s $%d OR (%s = $%d AND id > $%d))",
			sortKey, cmp, sortArg, sortKey, sortArg, len(args)))
	}

	query := "SELECT " + tb.selectList + " FROM " + tb.name
	if len(preds) > 0 {
		query += " WHERE " + strings.Join(preds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY %s %s, id ASC", sortKey, sortDir)
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, p.logger)

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func buildWhereInto(c domain.Criterion, tb table, preds []string, args []any) ([]string, []any, error) {
	built, args, err := buildWhere(c, tb, args)
	if err != nil {
		return nil, nil, err
	}
	return append(preds, built...), args, nil
}
