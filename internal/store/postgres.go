package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/db"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close), nil
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: closeFn, now: func() time.Time { return time.Now().UTC() }}
}

// Pool returns the underlying database pool.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
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
	ns DOUBLE PRECISION, nsv DOUBLE PRECISION, dsw DOUBLE PRECISION, dsl DOUBLE PRECISION,
	petw DOUBLE PRECISION, petl DOUBLE PRECISION, lsw DOUBLE PRECISION, lsl DOUBLE PRECISION,
	lipw DOUBLE PRECISION, lipl DOUBLE PRECISION, synsw DOUBLE PRECISION, synsl DOUBLE PRECISION,
	pchw DOUBLE PRECISION, pchl DOUBLE PRECISION,
	source_url         TEXT,
	html_reference     TEXT,
	scraped_date       TIMESTAMPTZ,
	rule_set           TEXT,
	corrections        JSONB NOT NULL DEFAULT '[]',
	issue_severity     TEXT,
	issue_explanation  TEXT,
	missing_fields     JSONB NOT NULL DEFAULT '[]',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_awards_year ON awards(year);
CREATE INDEX IF NOT EXISTS idx_awards_award ON awards(award);
CREATE INDEX IF NOT EXISTS idx_awards_genus ON awards(lower(genus));
CREATE INDEX IF NOT EXISTS idx_awards_location ON awards(location);
CREATE INDEX IF NOT EXISTS idx_awards_exhibitor ON awards(exhibitor);
CREATE INDEX IF NOT EXISTS idx_awards_measurement_type ON awards(measurement_type);
CREATE INDEX IF NOT EXISTS idx_awards_severity ON awards(issue_severity);

CREATE TABLE IF NOT EXISTS failed_documents (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	stage          TEXT NOT NULL,
	source_id      TEXT NOT NULL,
	year           INTEGER NOT NULL DEFAULT 0,
	url            TEXT,
	kind           TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'permanent',
	attempts       INTEGER NOT NULL DEFAULT 1,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (stage, source_id)
);

CREATE INDEX IF NOT EXISTS idx_failed_documents_year ON failed_documents(year);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertAward(ctx context.Context, rec model.ClassifiedRecord) (bool, error) {
	args, err := awardArgs(rec, s.now())
	if err != nil {
		return false, err
	}
	inserted, err := db.InsertIgnore(ctx, s.pool, insertAwardConfig, args)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: insert award %s", rec.Record.AwardNum)
	}
	return inserted, nil
}

func (s *PostgresStore) GetAward(ctx context.Context, awardNum string) (*model.ClassifiedRecord, error) {
	row := s.pool.QueryRow(ctx, selectAwardsSQL()+" WHERE award_num = $1", awardNum)
	cr, err := scanAward(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get award %s", awardNum)
	}
	return cr, nil
}

func (s *PostgresStore) UpdateAward(ctx context.Context, rec model.ClassifiedRecord) error {
	args, err := awardArgs(rec, s.now())
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, updateAwardSQL(dollar), updateArgs(args)...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update award %s", rec.Record.AwardNum)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "award %s", rec.Record.AwardNum)
	}
	return nil
}

func (s *PostgresStore) ListAwards(ctx context.Context, filter AwardFilter) ([]model.ClassifiedRecord, error) {
	query, args := listAwardsSQL(filter, dollar)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list awards")
	}
	defer rows.Close()

	var out []model.ClassifiedRecord
	for rows.Next() {
		cr, err := scanAward(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan award")
		}
		out = append(out, *cr)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list awards iterate")
}

func (s *PostgresStore) SeveritySummary(ctx context.Context, year int) (map[model.Severity]int, error) {
	query, args := severitySummarySQL(year, dollar)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: severity summary")
	}
	defer rows.Close()

	out := make(map[model.Severity]int)
	for rows.Next() {
		var (
			sev   *string
			count int64
		)
		if err := rows.Scan(&sev, &count); err != nil {
			return nil, eris.Wrap(err, "postgres: scan severity summary")
		}
		key := model.Severity("")
		if sev != nil {
			key = model.Severity(*sev)
		}
		out[key] += int(count)
	}
	return out, eris.Wrap(rows.Err(), "postgres: severity summary iterate")
}

func (s *PostgresStore) RecordFailure(ctx context.Context, entry resilience.DLQEntry) error {
	entry = withFailureDefaults(entry, s.now())
	_, err := s.pool.Exec(ctx, recordFailureSQL(dollar), failureArgs(entry)...)
	return eris.Wrapf(err, "postgres: record failure %s/%s", entry.Stage, entry.SourceID)
}

func (s *PostgresStore) ListFailures(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query, args := listFailuresSQL(filter, dollar)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list failures")
	}
	defer rows.Close()

	var out []resilience.DLQEntry
	for rows.Next() {
		e, err := scanFailure(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan failure")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list failures iterate")
}

func (s *PostgresStore) ResolveFailure(ctx context.Context, stage, sourceID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM failed_documents WHERE stage = $1 AND source_id = $2`, stage, sourceID)
	return eris.Wrapf(err, "postgres: resolve failure %s/%s", stage, sourceID)
}
