package pipeline

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/classify"
	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/resilience"
	"github.com/sells-group/awards-cli/internal/store"
)

// ReconcileReport summarizes an explicit reconciliation pass.
type ReconcileReport struct {
	Years     []int                  `json:"years"`
	Checked   int                    `json:"checked"`
	Updated   int                    `json:"updated"`
	Missing   int                    `json:"missing"`
	Conflicts []*model.ConflictError `json:"conflicts"`
	Errors    []model.BatchError     `json:"errors"`
}

// Reconcile re-reads the index listings of years and applies them to the
// already persisted records. Each changed record is overwritten through the
// audited fix path with its corrections appended.
func (p *Pipeline) Reconcile(ctx context.Context, years []int) (*ReconcileReport, error) {
	if err := p.preflight(ctx); err != nil {
		return nil, err
	}
	report := &ReconcileReport{
		Years:     append([]int(nil), years...),
		Conflicts: []*model.ConflictError{},
		Errors:    []model.BatchError{},
	}

	for _, year := range years {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "pipeline: reconcile interrupted")
		}
		yr := newYearReport(year)
		index := p.loadIndex(ctx, year, yr)
		report.Errors = append(report.Errors, yr.Errors...)

		for _, num := range sortedKeys(index) {
			p.reconcileOne(ctx, index[num], year, report)
		}
	}

	zap.L().Info("pipeline: reconcile complete",
		zap.Ints("years", years),
		zap.Int("checked", report.Checked),
		zap.Int("updated", report.Updated),
		zap.Int("missing", report.Missing),
		zap.Int("conflicts", len(report.Conflicts)),
	)
	return report, nil
}

func (p *Pipeline) reconcileOne(ctx context.Context, entry model.IndexRecord, year int, report *ReconcileReport) {
	current, err := p.store.GetAward(ctx, entry.AwardNum)
	if errors.Is(err, store.ErrNotFound) {
		report.Missing++
		return
	}
	if err != nil {
		report.Errors = append(report.Errors, batchError(resilience.StageReconcile, year, entry.SourceID, entry.AwardNum, err))
		return
	}
	report.Checked++

	rec := current.Record
	rec.Corrections = append([]model.Correction(nil), rec.Corrections...)
	res := p.reconciler.ReconcileStored(&rec, entry)
	report.Conflicts = append(report.Conflicts, res.Conflicts...)
	if !res.Changed() {
		return
	}

	if err := p.loader.Fix(ctx, classify.Record(rec)); err != nil {
		report.Errors = append(report.Errors, batchError(resilience.StageReconcile, year, entry.SourceID, entry.AwardNum, err))
		return
	}
	report.Updated++
	if err := p.syncRecord(ctx, entry.AwardNum); err != nil {
		report.Errors = append(report.Errors, batchError(resilience.StageReconcile, year, entry.SourceID, entry.AwardNum, err))
	}
}

func batchError(stage string, year int, sourceID, awardNum string, err error) model.BatchError {
	return model.BatchError{
		Kind:     model.KindOf(err),
		Stage:    stage,
		Year:     year,
		SourceID: sourceID,
		AwardNum: awardNum,
		Message:  err.Error(),
	}
}
