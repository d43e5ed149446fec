package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/classify"
	"github.com/sells-group/awards-cli/internal/model"
)

// YearReport holds the counters of one year's run.
type YearReport struct {
	Year         int                    `json:"year"`
	Found        int                    `json:"found"`
	IndexEntries int                    `json:"indexEntries"`
	Inserted     int                    `json:"inserted"`
	Skipped      int                    `json:"skipped"`
	Failed       int                    `json:"failed"`
	Gaps         int                    `json:"gaps"`
	GapFields    map[model.Field]int    `json:"gapFields"`
	Conflicts    []*model.ConflictError `json:"conflicts"`
	Severity     *classify.Summary      `json:"severity"`
	Errors       []model.BatchError     `json:"errors"`
}

func newYearReport(year int) *YearReport {
	return &YearReport{
		Year:      year,
		GapFields: make(map[model.Field]int),
		Conflicts: []*model.ConflictError{},
		Severity:  classify.NewSummary(),
		Errors:    []model.BatchError{},
	}
}

// addGaps counts the extraction gaps of one document.
func (y *YearReport) addGaps(gaps []*model.ExtractionGap) {
	for _, g := range gaps {
		y.Gaps++
		y.GapFields[g.Field]++
	}
}

// SuccessRate is (inserted+skipped)/found as a percentage.
func (y *YearReport) SuccessRate() float64 {
	return successRate(y.Found, y.Inserted+y.Skipped)
}

// RunReport is the end-of-run report across all years.
type RunReport struct {
	RunID       string                 `json:"runId"`
	StartedAt   time.Time              `json:"startedAt"`
	FinishedAt  time.Time              `json:"finishedAt"`
	Years       []int                  `json:"years"`
	Found       int                    `json:"found"`
	Inserted    int                    `json:"inserted"`
	Skipped     int                    `json:"skipped"`
	Failed      int                    `json:"failed"`
	Gaps        int                    `json:"gaps"`
	GapFields   map[model.Field]int    `json:"gapFields"`
	SuccessRate float64                `json:"successRate"`
	Conflicts   []*model.ConflictError `json:"conflicts"`
	Severity    *classify.Summary      `json:"severity"`
	PerYear     []*YearReport          `json:"perYear"`
	Errors      []model.BatchError     `json:"errors"`
}

func newRunReport(runID string, years []int, started time.Time) *RunReport {
	return &RunReport{
		RunID:     runID,
		StartedAt: started,
		Years:     append([]int(nil), years...),
		GapFields: make(map[model.Field]int),
		Conflicts: []*model.ConflictError{},
		Severity:  classify.NewSummary(),
		PerYear:   []*YearReport{},
		Errors:    []model.BatchError{},
	}
}

func (r *RunReport) addYear(y *YearReport) {
	r.PerYear = append(r.PerYear, y)
	r.Found += y.Found
	r.Inserted += y.Inserted
	r.Skipped += y.Skipped
	r.Failed += y.Failed
	r.Gaps += y.Gaps
	for f, n := range y.GapFields {
		r.GapFields[f] += n
	}
	r.Conflicts = append(r.Conflicts, y.Conflicts...)
	r.Errors = append(r.Errors, y.Errors...)
	r.Severity.Merge(y.Severity)
}

func (r *RunReport) finish(t time.Time) {
	r.FinishedAt = t
	r.SuccessRate = successRate(r.Found, r.Inserted+r.Skipped)
}

// successRate treats a year with no documents as fully successful.
func successRate(found, ok int) float64 {
	if found == 0 {
		return 100
	}
	return float64(ok) / float64(found) * 100
}

// Write stores the report as indented JSON at path.
func (r *RunReport) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal report")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "pipeline: create report dir %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "pipeline: write report %s", path)
	}
	return nil
}

// Format renders a short human-readable summary.
func (r *RunReport) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s\n", r.RunID)
	fmt.Fprintf(&b, "found=%d inserted=%d skipped=%d failed=%d conflicts=%d success=%.1f%%\n",
		r.Found, r.Inserted, r.Skipped, r.Failed, len(r.Conflicts), r.SuccessRate)
	for _, y := range r.PerYear {
		fmt.Fprintf(&b, "  %d: found=%d inserted=%d skipped=%d failed=%d conflicts=%d success=%.1f%%\n",
			y.Year, y.Found, y.Inserted, y.Skipped, y.Failed, len(y.Conflicts), y.SuccessRate())
	}
	b.WriteString("severity:")
	for _, sev := range model.Severities {
		fmt.Fprintf(&b, " %s=%d", sev, r.Severity.BySeverity[sev])
	}
	b.WriteString("\n")
	if top := r.Severity.TopFields(5); len(top) > 0 {
		b.WriteString("most missing:")
		for _, fc := range top {
			fmt.Fprintf(&b, " %s=%d", fc.Field, fc.Count)
		}
		b.WriteString("\n")
	}
	return b.String()
}
