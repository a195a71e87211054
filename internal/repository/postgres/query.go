package postgres

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/clinic-dashboard-api/internal/model"
)

var dialect = goqu.Dialect("postgres")

// sortColumns maps public sort fields to SQL columns.
type sortColumns map[string]string

func (s sortColumns) order(sorts []model.SortOrder, fallback ...exp.OrderedExpression) []exp.OrderedExpression {
	var out []exp.OrderedExpression
	for _, so := range sorts {
		col, ok := s[so.Field]
		if !ok {
			continue
		}
		if so.Desc {
			out = append(out, goqu.I(col).Desc())
		} else {
			out = append(out, goqu.I(col).Asc())
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

// selectPage runs a count over ds and then the ordered, windowed select.
// A zero page size returns every row.
func selectPage(ctx context.Context, db *sqlx.DB, dest interface{}, ds *goqu.SelectDataset, paging model.Paging, order []exp.OrderedExpression) (int, error) {
	countSQL, countArgs, err := ds.ClearSelect().Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := db.GetContext(ctx, &total, countSQL, countArgs...); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}

	ds = ds.Order(order...)
	if paging.Size > 0 {
		ds = ds.Limit(uint(paging.Size)).Offset(uint(paging.Page * paging.Size))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}
	if err := db.SelectContext(ctx, dest, query, args...); err != nil {
		return 0, fmt.Errorf("failed to select rows: %w", err)
	}
	return total, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func likePattern(text string) string {
	return "%" + text + "%"
}
