package repository

import (
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"game-ledger-bot/internal/model"
)

// whereRange adds inclusive bounds on column.
func whereRange(b sq.SelectBuilder, column string, r *model.DateRange) sq.SelectBuilder {
	if r == nil {
		return b
	}
	if r.Start != nil {
		b = b.Where(sq.GtOrEq{column: *r.Start})
	}
	if r.End != nil {
		b = b.Where(sq.LtOrEq{column: *r.End})
	}
	return b
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func joinColumns(cols []string) string {
	return strings.Join(cols, ", ")
}
