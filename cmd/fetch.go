package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/archive"
	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/resilience"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [year]",
	Short: "Crawl award documents and index listings into the archive",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if cfg.Fetch.BaseURL == "" {
			return eris.New("fetch.base_url is required (AWARDS_FETCH_BASE_URL)")
		}
		years, err := parseYears(args)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f := fetcher.NewDocumentFetcher(fetcher.HTTPOptions{
			UserAgent: cfg.Fetch.UserAgent,
			Timeout:   time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			Delay:     time.Duration(cfg.Fetch.DelayMs) * time.Millisecond,
			Retry:     resilience.FromRetryConfig(cfg.Fetch.MaxAttempts, cfg.Fetch.InitialBackoffMs, cfg.Fetch.MaxBackoffMs),
		})
		crawler := fetcher.NewCrawler(f, archive.New(cfg.Source.Root), st, fetcher.CrawlerOptions{
			BaseURL:       cfg.Fetch.BaseURL,
			MaxIndexPages: cfg.Fetch.MaxIndexPages,
		})

		var results []*fetcher.CrawlResult
		for _, year := range years {
			res, err := crawler.FetchYear(ctx, year)
			if res != nil {
				results = append(results, res)
			}
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				zap.L().Error("fetch year failed", zap.Int("year", year), zap.Error(err))
			}
		}

		formatCrawlResults(os.Stdout, results)
		return nil
	},
}

func formatCrawlResults(out io.Writer, results []*fetcher.CrawlResult) {
	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%d: index_pages=%d discovered=%d fetched=%d failed=%d\n",
			r.Year, r.IndexPages, r.Discovered, r.Fetched, r.Failed)
	}
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
