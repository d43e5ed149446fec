package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/awards-cli/internal/resilience"
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List dead-lettered documents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stage, _ := cmd.Flags().GetString("stage")
		year, _ := cmd.Flags().GetInt("year")
		errType, _ := cmd.Flags().GetString("error-type")
		limit, _ := cmd.Flags().GetInt("limit")

		entries, err := st.ListFailures(ctx, resilience.DLQFilter{
			Stage:     stage,
			Year:      year,
			ErrorType: errType,
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "failures list")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No failures recorded.")
			return nil
		}

		formatFailures(os.Stdout, entries)
		return nil
	},
}

var failuresResolveCmd = &cobra.Command{
	Use:   "resolve <stage> <source-id>",
	Short: "Remove a dead-lettered document after a manual retry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.ResolveFailure(ctx, args[0], args[1]); err != nil {
			return eris.Wrap(err, "failures resolve")
		}
		fmt.Fprintf(os.Stderr, "Resolved %s %s.\n", args[0], args[1])
		return nil
	},
}

// formatFailures writes a tabular list of dead-letter entries to out.
func formatFailures(out io.Writer, entries []resilience.DLQEntry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "STAGE\tSOURCE\tYEAR\tKIND\tTYPE\tATTEMPTS\tLAST_FAILED\tERROR")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%d\t%s\t%s\n",
			e.Stage,
			e.SourceID,
			e.Year,
			e.Kind,
			e.ErrorType,
			e.Attempts,
			e.LastFailedAt.Format("2006-01-02 15:04"),
			truncate(e.Error, 80),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func init() {
	failuresCmd.Flags().String("stage", "", "filter by stage (fetch, index, parse, reconcile, load)")
	failuresCmd.Flags().Int("year", 0, "filter by award year")
	failuresCmd.Flags().String("error-type", "", "filter by error type (transient, permanent)")
	failuresCmd.Flags().Int("limit", 100, "max number of entries")

	failuresCmd.AddCommand(failuresResolveCmd)
	rootCmd.AddCommand(failuresCmd)
}
