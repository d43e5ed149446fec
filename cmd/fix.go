package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/awards-cli/internal/pipeline"
)

var fixCmd = &cobra.Command{
	Use:   "fix <file.yaml>",
	Short: "Apply manual corrections to persisted awards",
	Long: `Applies a YAML list of corrections through the audited overwrite path:

  - award_num: "20251234"
    field: photographer
    value: Jane Doe
    reason: credit from the society newsletter

A value of N/A marks the field not applicable; an empty value clears it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		fixes, err := pipeline.ReadFixes(args[0])
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

		report := p.ApplyFixes(ctx, fixes)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		if len(report.Errors) > 0 {
			return eris.Errorf("%d of %d fixes failed", len(report.Errors), len(fixes))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fixCmd)
}
