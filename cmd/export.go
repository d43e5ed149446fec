package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/awards-cli/internal/export"
	"github.com/sells-group/awards-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export <out.xlsx>",
	Short: "Export award records to a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		year, _ := cmd.Flags().GetInt("year")
		awards, err := st.ListAwards(ctx, store.AwardFilter{Year: year})
		if err != nil {
			return eris.Wrap(err, "export")
		}
		if err := export.WriteXLSX(args[0], awards, nil); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d awards to %s.\n", len(awards), args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().Int("year", 0, "restrict to one award year")
	rootCmd.AddCommand(exportCmd)
}
