package main

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/archive"
	"github.com/sells-group/awards-cli/internal/pipeline"
	"github.com/sells-group/awards-cli/internal/reconcile"
	"github.com/sells-group/awards-cli/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	var poolCfg *store.PoolConfig
	if cfg.Store.MaxConns > 0 || cfg.Store.MinConns > 0 {
		poolCfg = &store.PoolConfig{MaxConns: cfg.Store.MaxConns, MinConns: cfg.Store.MinConns}
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func initPipeline(st store.Store) (*pipeline.Pipeline, error) {
	aliases, err := reconcile.LoadAliasTable(cfg.Reconcile.AliasFile)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, st, archive.New(cfg.Source.Root), aliases)
}

// parseYears returns the single year in args, or the configured range.
func parseYears(args []string) ([]int, error) {
	if len(args) == 0 {
		return cfg.Years(), nil
	}
	year, err := strconv.Atoi(args[0])
	if err != nil || year < 1900 || year > 2100 {
		return nil, eris.Errorf("invalid year %q", args[0])
	}
	return []int{year}, nil
}
