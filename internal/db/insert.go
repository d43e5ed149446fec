package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Placeholder styles for generated statements.
const (
	Dollar   = "$" // $1, $2, ... (Postgres)
	Question = "?" // ?, ?, ... (SQLite)
)

// InsertConfig describes an insert-if-absent statement.
type InsertConfig struct {
	Table        string   // target table, optionally schema-qualified
	Columns      []string // inserted columns, in argument order
	ConflictKeys []string // columns of the unique constraint
}

// InsertIgnoreSQL builds INSERT ... ON CONFLICT (keys) DO NOTHING with
// sanitized identifiers. Both Postgres and SQLite accept the result.
func InsertIgnoreSQL(cfg InsertConfig, style string) (string, error) {
	if len(cfg.Columns) == 0 {
		return "", eris.New("db: insert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return "", eris.New("db: insert: no conflict keys specified")
	}

	placeholders := make([]string, len(cfg.Columns))
	for i := range cfg.Columns {
		if style == Question {
			placeholders[i] = "?"
		} else {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
		}
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO NOTHING",
		sanitizeTable(cfg.Table),
		quoteAndJoin(cfg.Columns),
		strings.Join(placeholders, ", "),
		quoteAndJoin(cfg.ConflictKeys),
	), nil
}

// InsertIgnore inserts one row unless a row with the same conflict keys
// exists. It reports whether the row was written.
func InsertIgnore(ctx context.Context, pool Pool, cfg InsertConfig, row []any) (bool, error) {
	if len(row) != len(cfg.Columns) {
		return false, eris.Errorf("db: insert: %d values for %d columns", len(row), len(cfg.Columns))
	}
	query, err := InsertIgnoreSQL(cfg, Dollar)
	if err != nil {
		return false, err
	}
	tag, err := pool.Exec(ctx, query, row...)
	if err != nil {
		return false, eris.Wrapf(err, "db: insert into %s", cfg.Table)
	}
	return tag.RowsAffected() == 1, nil
}

// sanitizeTable handles schema-qualified table names like "awards.records".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
