package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [year]",
	Short: "Re-apply index listings to persisted awards",
	Long:  "Runs the explicit reconciliation pass. Changed awards are overwritten through the audited fix path with their corrections appended.",
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

		report, err := p.Reconcile(ctx, years)
		if err != nil && report == nil {
			return eris.Wrap(err, "reconcile")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}
