package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/store"
)

var awardsCmd = &cobra.Command{
	Use:   "awards",
	Short: "Inspect persisted award records",
}

// -- awards list --

var awardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List award records",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter, err := awardFilterFromFlags(cmd)
		if err != nil {
			return err
		}

		awards, err := st.ListAwards(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "awards list")
		}
		if len(awards) == 0 {
			fmt.Fprintln(os.Stderr, "No awards found.")
			return nil
		}

		formatAwardsList(os.Stdout, awards)
		return nil
	},
}

// -- awards show --

var awardsShowCmd = &cobra.Command{
	Use:   "show <award-num>",
	Short: "Show one award record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		award, err := st.GetAward(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "awards show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(award)
	},
}

// -- awards summary --

var awardsSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Count award records per issue severity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		year, _ := cmd.Flags().GetInt("year")
		counts, err := st.SeveritySummary(ctx, year)
		if err != nil {
			return eris.Wrap(err, "awards summary")
		}
		formatSeverityCounts(os.Stdout, counts)
		return nil
	},
}

func addAwardFilterFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "filter by award year")
	cmd.Flags().String("award", "", "filter by award code (AM, HCC, ...)")
	cmd.Flags().String("genus", "", "filter by genus")
	cmd.Flags().String("location", "", "filter by judging location (substring)")
	cmd.Flags().String("exhibitor", "", "filter by exhibitor (substring)")
	cmd.Flags().String("measurement-type", "", "filter by measurement type")
	cmd.Flags().String("severity", "", "filter by issue severity (critical, important, measurement, none)")
	cmd.Flags().Int("limit", 100, "max number of awards (0 for all)")
	cmd.Flags().Int("offset", 0, "number of awards to skip")
}

func awardFilterFromFlags(cmd *cobra.Command) (store.AwardFilter, error) {
	year, _ := cmd.Flags().GetInt("year")
	award, _ := cmd.Flags().GetString("award")
	genus, _ := cmd.Flags().GetString("genus")
	location, _ := cmd.Flags().GetString("location")
	exhibitor, _ := cmd.Flags().GetString("exhibitor")
	mtype, _ := cmd.Flags().GetString("measurement-type")
	severity, _ := cmd.Flags().GetString("severity")
	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")

	if mtype != "" && !model.MeasurementType(mtype).Valid() {
		return store.AwardFilter{}, eris.Errorf("unknown measurement type %q", mtype)
	}
	if severity != "" && !validSeverity(model.Severity(severity)) {
		return store.AwardFilter{}, eris.Errorf("unknown severity %q", severity)
	}

	return store.AwardFilter{
		Year:            year,
		Award:           award,
		Genus:           genus,
		Location:        location,
		Exhibitor:       exhibitor,
		MeasurementType: model.MeasurementType(mtype),
		Severity:        model.Severity(severity),
		Limit:           limit,
		Offset:          offset,
	}, nil
}

// formatAwardsList writes a tabular list of awards to out.
func formatAwardsList(out io.Writer, awards []model.ClassifiedRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AWARD_NUM\tYEAR\tAWARD\tPLANT\tLOCATION\tEXHIBITOR\tSEVERITY")
	for _, a := range awards {
		r := a.Record
		award := r.Award.Text()
		if pts := r.AwardPoints.Text(); pts != "" && pts != model.NotApplicableText {
			award += " " + pts
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.AwardNum,
			r.Year,
			dash(award),
			dash(plantName(r)),
			dash(r.Location.Text()),
			dash(r.Exhibitor.Text()),
			a.Issues.Severity,
		)
	}
	_ = w.Flush()
}

func plantName(r model.AwardRecord) string {
	name := r.Genus.Text()
	if sp, ok := r.Species.Get(); ok {
		name += " " + sp
	}
	if cl, ok := r.Clone.Get(); ok {
		name += " '" + cl + "'"
	}
	return name
}

func formatSeverityCounts(out io.Writer, counts map[model.Severity]int) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SEVERITY\tCOUNT")
	total := 0
	for _, sev := range model.Severities {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", sev, counts[sev])
		total += counts[sev]
	}
	_, _ = fmt.Fprintf(w, "total\t%d\n", total)
	_ = w.Flush()
}

func validSeverity(s model.Severity) bool {
	for _, sev := range model.Severities {
		if sev == s {
			return true
		}
	}
	return false
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	addAwardFilterFlags(awardsListCmd)
	awardsSummaryCmd.Flags().Int("year", 0, "restrict to one award year")

	awardsCmd.AddCommand(awardsListCmd)
	awardsCmd.AddCommand(awardsShowCmd)
	awardsCmd.AddCommand(awardsSummaryCmd)
	rootCmd.AddCommand(awardsCmd)
}
