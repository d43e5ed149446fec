// Package monitoring evaluates the health of a finished pipeline run and
// delivers alerts to a webhook.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/pipeline"
	"github.com/sells-group/awards-cli/internal/resilience"
)

// maxDLQScan bounds the dead-letter listing used to measure queue depth.
const maxDLQScan = 10000

// RunSnapshot is the health view of one finished run.
type RunSnapshot struct {
	RunID        string  `json:"run_id"`
	Years        []int   `json:"years"`
	Found        int     `json:"found"`
	Loaded       int     `json:"loaded"`
	Failed       int     `json:"failed"`
	SuccessRate  float64 `json:"success_rate"`
	Classified   int     `json:"classified"`
	Critical     int     `json:"critical"`
	CriticalRate float64 `json:"critical_rate"`
	Conflicts    int     `json:"conflicts"`

	// DLQDepth counts unresolved dead-lettered documents of the run's years.
	DLQDepth int `json:"dlq_depth"`

	CollectedAt time.Time `json:"collected_at"`
}

// FailureLister is the dead-letter surface the collector reads.
type FailureLister interface {
	ListFailures(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
}

// Collector builds snapshots from run reports and the dead-letter queue.
type Collector struct {
	failures FailureLister
}

// NewCollector creates a Collector. failures may be nil.
func NewCollector(failures FailureLister) *Collector {
	return &Collector{failures: failures}
}

// Collect summarizes report.
func (c *Collector) Collect(ctx context.Context, report *pipeline.RunReport) (*RunSnapshot, error) {
	snap := &RunSnapshot{
		RunID:       report.RunID,
		Years:       report.Years,
		Found:       report.Found,
		Loaded:      report.Inserted + report.Skipped,
		Failed:      report.Failed,
		SuccessRate: report.SuccessRate,
		Conflicts:   len(report.Conflicts),
		CollectedAt: time.Now().UTC(),
	}
	if report.Severity != nil {
		snap.Classified = report.Severity.Total
		snap.Critical = report.Severity.BySeverity[model.SeverityCritical]
	}
	if snap.Classified > 0 {
		snap.CriticalRate = float64(snap.Critical) / float64(snap.Classified)
	}

	if c.failures == nil {
		return snap, nil
	}
	years := report.Years
	if len(years) == 0 {
		years = []int{0}
	}
	for _, y := range years {
		entries, err := c.failures.ListFailures(ctx, resilience.DLQFilter{Year: y, Limit: maxDLQScan})
		if err != nil {
			return nil, eris.Wrap(err, "monitoring: list failures")
		}
		snap.DLQDepth += len(entries)
	}
	return snap, nil
}
