// Package pipeline runs award documents through extraction, reconciliation,
// normalization, classification and loading, one year at a time.
package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/awards-cli/internal/archive"
	"github.com/sells-group/awards-cli/internal/config"
	"github.com/sells-group/awards-cli/internal/extract"
	"github.com/sells-group/awards-cli/internal/loader"
	"github.com/sells-group/awards-cli/internal/normalize"
	"github.com/sells-group/awards-cli/internal/reconcile"
	"github.com/sells-group/awards-cli/internal/store"
)

// Pipeline wires the per-document stages to an archive and a store.
type Pipeline struct {
	cfg        *config.Config
	store      store.Store
	archive    *archive.Archive
	extractor  *extract.Extractor
	reconciler *reconcile.Reconciler
	norm       *normalize.Normalizer
	loader     *loader.Loader
	now        func() time.Time
}

// New creates a Pipeline. A nil alias table uses the defaults.
func New(cfg *config.Config, st store.Store, arc *archive.Archive, aliases *reconcile.AliasTable) (*Pipeline, error) {
	registry := extract.DefaultRegistry()
	if cfg.Extract.RuleSet != "" {
		if _, err := registry.ByID(cfg.Extract.RuleSet); err != nil {
			return nil, eris.Wrapf(err, "pipeline: extract.rule_set (known: %s)", strings.Join(registry.IDs(), ", "))
		}
	}
	rec := reconcile.New(aliases)
	return &Pipeline{
		cfg:        cfg,
		store:      st,
		archive:    arc,
		extractor:  extract.New(registry, cfg.Extract.RuleSet),
		reconciler: rec,
		norm:       normalize.New(rec.Aliases()),
		loader:     loader.New(st),
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// preflight checks the only conditions that abort a run.
func (p *Pipeline) preflight(ctx context.Context) error {
	if err := p.archive.Validate(); err != nil {
		return eris.Wrap(err, "pipeline: preflight")
	}
	if err := p.store.Ping(ctx); err != nil {
		return eris.Wrap(err, "pipeline: preflight")
	}
	return nil
}

// Run processes every archived document of years. Per-document failures are
// accumulated in the report; only preflight failures and cancellation are
// returned as errors. Disjoint years may run concurrently up to
// run.year_concurrency; documents within a year are processed in order.
func (p *Pipeline) Run(ctx context.Context, years []int) (*RunReport, error) {
	if err := p.preflight(ctx); err != nil {
		return nil, err
	}

	report := newRunReport(uuid.New().String(), years, p.now())
	log := zap.L().With(zap.String("run_id", report.RunID))
	log.Info("pipeline: run starting", zap.Ints("years", years))

	limit := p.cfg.Run.YearConcurrency
	if limit <= 0 {
		limit = 1
	}

	var mu sync.Mutex
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, year := range years {
		year := year
		g.Go(func() error {
			yr := p.runYear(gCtx, year)
			mu.Lock()
			report.addYear(yr)
			mu.Unlock()
			return gCtx.Err()
		})
	}
	err := g.Wait()

	sort.Slice(report.PerYear, func(i, j int) bool { return report.PerYear[i].Year < report.PerYear[j].Year })
	report.finish(p.now())
	log.Info("pipeline: run complete",
		zap.Int("found", report.Found),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("conflicts", len(report.Conflicts)),
		zap.Float64("success_rate", report.SuccessRate),
	)
	if err != nil {
		return report, eris.Wrap(err, "pipeline: run interrupted")
	}
	return report, nil
}
