// Package store persists award records and dead-lettered documents.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// ErrNotFound is returned when a requested award does not exist.
var ErrNotFound = eris.New("store: award not found")

// AwardFilter specifies criteria for listing awards. Zero values match
// everything; Limit <= 0 returns all rows.
type AwardFilter struct {
	Year            int                   `json:"year,omitempty"`
	Award           string                `json:"award,omitempty"`
	Genus           string                `json:"genus,omitempty"`
	Location        string                `json:"location,omitempty"`
	Exhibitor       string                `json:"exhibitor,omitempty"`
	MeasurementType model.MeasurementType `json:"measurement_type,omitempty"`
	Severity        model.Severity        `json:"severity,omitempty"`
	Limit           int                   `json:"limit,omitempty"`
	Offset          int                   `json:"offset,omitempty"`
}

// Store defines the persistence interface for the award pipeline.
type Store interface {
	// Awards. InsertAward never overwrites: it reports false when the award
	// number already exists. UpdateAward is reserved for the audited fix path.
	InsertAward(ctx context.Context, rec model.ClassifiedRecord) (bool, error)
	GetAward(ctx context.Context, awardNum string) (*model.ClassifiedRecord, error)
	UpdateAward(ctx context.Context, rec model.ClassifiedRecord) error
	ListAwards(ctx context.Context, filter AwardFilter) ([]model.ClassifiedRecord, error)
	SeveritySummary(ctx context.Context, year int) (map[model.Severity]int, error)

	// Dead-lettered documents.
	RecordFailure(ctx context.Context, entry resilience.DLQEntry) error
	ListFailures(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	ResolveFailure(ctx context.Context, stage, sourceID string) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)

// DefaultSQLitePath is the database file used when no DSN is configured.
const DefaultSQLitePath = "awards.db"

// Open connects to the configured driver ("sqlite" or "postgres") and
// applies migrations.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch driver {
	case "", "sqlite":
		if dsn == "" {
			dsn = DefaultSQLitePath
		}
		st, err = NewSQLite(dsn)
	case "postgres":
		if dsn == "" {
			return nil, eris.New("store: postgres requires a dsn")
		}
		st, err = NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
