package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/monitoring"
)

var runReportPath string

var runCmd = &cobra.Command{
	Use:   "run [year]",
	Short: "Extract, reconcile, classify and load archived award documents",
	Long:  "Processes every archived document of one year, or of the configured year range, and writes a run report.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		years, err := parseYears(args)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := initPipeline(st)
		if err != nil {
			return err
		}

		report, runErr := p.Run(ctx, years)
		if report == nil {
			return eris.Wrap(runErr, "pipeline run")
		}

		path := runReportPath
		if path == "" {
			path = cfg.ReportPath()
		}
		if err := report.Write(path); err != nil {
			return err
		}
		zap.L().Info("run report written", zap.String("path", path))

		fmt.Fprint(os.Stdout, report.Format())

		collector := monitoring.NewCollector(st)
		alerter := monitoring.NewAlerter(cfg.Monitoring)
		if _, err := monitoring.Check(ctx, collector, alerter, report); err != nil {
			zap.L().Warn("run health check failed", zap.Error(err))
		}
		if runErr != nil {
			return eris.Wrap(runErr, "pipeline run")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runReportPath, "report", "", "run report path (default run.report_path or next to the store)")
	rootCmd.AddCommand(runCmd)
}
