package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/awards-cli/internal/db"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db        *sql.DB
	insertSQL string
	now       func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	insertSQL, err := db.InsertIgnoreSQL(insertAwardConfig, db.Question)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &SQLiteStore{db: conn, insertSQL: insertSQL, now: func() time.Time { return time.Now().UTC() }}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS awards (
	award_num          TEXT PRIMARY KEY,
	year               INTEGER NOT NULL,
	award              TEXT,
	award_points       INTEGER,
	location           TEXT,
	award_date         TEXT,
	genus              TEXT,
	species            TEXT,
	clone              TEXT,
	cross_name         TEXT,
	exhibitor          TEXT,
	photographer       TEXT,
	photo              TEXT,
	description        TEXT,
	num_flowers        INTEGER,
	num_buds           INTEGER,
	num_inflorescences INTEGER,
	measurement_type   TEXT NOT NULL,
	ns REAL, nsv REAL, dsw REAL, dsl REAL, petw REAL, petl REAL,
	lsw REAL, lsl REAL, lipw REAL, lipl REAL,
	synsw REAL, synsl REAL, pchw REAL, pchl REAL,
	source_url         TEXT,
	html_reference     TEXT,
	scraped_date       DATETIME,
	rule_set           TEXT,
	corrections        TEXT NOT NULL DEFAULT '[]',
	issue_severity     TEXT,
	issue_explanation  TEXT,
	missing_fields     TEXT NOT NULL DEFAULT '[]',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_awards_year ON awards(year);
CREATE INDEX IF NOT EXISTS idx_awards_award ON awards(award);
CREATE INDEX IF NOT EXISTS idx_awards_genus ON awards(genus);
CREATE INDEX IF NOT EXISTS idx_awards_location ON awards(location);
CREATE INDEX IF NOT EXISTS idx_awards_exhibitor ON awards(exhibitor);
CREATE INDEX IF NOT EXISTS idx_awards_measurement_type ON awards(measurement_type);
CREATE INDEX IF NOT EXISTS idx_awards_severity ON awards(issue_severity);

CREATE TABLE IF NOT EXISTS failed_documents (
	id             TEXT PRIMARY KEY,
	stage          TEXT NOT NULL,
	source_id      TEXT NOT NULL,
	year           INTEGER NOT NULL DEFAULT 0,
	url            TEXT,
	kind           TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'permanent',
	attempts       INTEGER NOT NULL DEFAULT 1,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (stage, source_id)
);

CREATE INDEX IF NOT EXISTS idx_failed_documents_year ON failed_documents(year);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) InsertAward(ctx context.Context, rec model.ClassifiedRecord) (bool, error) {
	args, err := awardArgs(rec, s.now())
	if err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.insertSQL, args...)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: insert award %s", rec.Record.AwardNum)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) GetAward(ctx context.Context, awardNum string) (*model.ClassifiedRecord, error) {
	row := s.db.QueryRowContext(ctx, selectAwardsSQL()+" WHERE award_num = ?", awardNum)
	cr, err := scanAward(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get award %s", awardNum)
	}
	return cr, nil
}

func (s *SQLiteStore) UpdateAward(ctx context.Context, rec model.ClassifiedRecord) error {
	args, err := awardArgs(rec, s.now())
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, updateAwardSQL(question), updateArgs(args)...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update award %s", rec.Record.AwardNum)
	}
	return checkRowsAffected(res, rec.Record.AwardNum)
}

func (s *SQLiteStore) ListAwards(ctx context.Context, filter AwardFilter) ([]model.ClassifiedRecord, error) {
	query, args := listAwardsSQL(filter, question)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list awards")
	}
	defer rows.Close()

	var out []model.ClassifiedRecord
	for rows.Next() {
		cr, err := scanAward(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan award")
		}
		out = append(out, *cr)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list awards iterate")
}

func (s *SQLiteStore) SeveritySummary(ctx context.Context, year int) (map[model.Severity]int, error) {
	query, args := severitySummarySQL(year, question)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: severity summary")
	}
	defer rows.Close()

	out := make(map[model.Severity]int)
	for rows.Next() {
		var (
			sev   sql.NullString
			count int
		)
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan severity summary")
		}
		out[model.Severity(sev.String)] += count
	}
	return out, eris.Wrap(rows.Err(), "sqlite: severity summary iterate")
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, entry resilience.DLQEntry) error {
	entry = withFailureDefaults(entry, s.now())
	_, err := s.db.ExecContext(ctx, recordFailureSQL(question), failureArgs(entry)...)
	return eris.Wrapf(err, "sqlite: record failure %s/%s", entry.Stage, entry.SourceID)
}

func (s *SQLiteStore) ListFailures(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query, args := listFailuresSQL(filter, question)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list failures")
	}
	defer rows.Close()

	var out []resilience.DLQEntry
	for rows.Next() {
		e, err := scanFailure(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan failure")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list failures iterate")
}

func (s *SQLiteStore) ResolveFailure(ctx context.Context, stage, sourceID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM failed_documents WHERE stage = ? AND source_id = ?`, stage, sourceID)
	return eris.Wrapf(err, "sqlite: resolve failure %s/%s", stage, sourceID)
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func checkRowsAffected(res sql.Result, awardNum string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "award %s", awardNum)
	}
	return nil
}

// withFailureDefaults fills the identity and timestamps of a new entry.
func withFailureDefaults(e resilience.DLQEntry, now time.Time) resilience.DLQEntry {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	if e.LastFailedAt.IsZero() {
		e.LastFailedAt = now
	}
	if e.Attempts <= 0 {
		e.Attempts = 1
	}
	if e.ErrorType == "" {
		e.ErrorType = resilience.ErrorTypePermanent
	}
	return e
}
