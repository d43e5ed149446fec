// Package loader persists classified award records with at-most-once,
// never-overwrite semantics.
package loader

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/store"
)

// Outcome is the result of loading one record.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeSkipped  Outcome = "skipped"
	OutcomeFailed   Outcome = "failed"
)

// RecordResult is the outcome for one award number.
type RecordResult struct {
	AwardNum string  `json:"awardNum"`
	Outcome  Outcome `json:"outcome"`
	Err      error   `json:"-"`
}

// BatchResult tallies the outcomes of a Load call.
type BatchResult struct {
	Inserted int            `json:"inserted"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Results  []RecordResult `json:"results"`
}

func (b *BatchResult) add(r RecordResult) {
	switch r.Outcome {
	case OutcomeInserted:
		b.Inserted++
	case OutcomeSkipped:
		b.Skipped++
	case OutcomeFailed:
		b.Failed++
	}
	b.Results = append(b.Results, r)
}

// Loader writes records through a Store.
type Loader struct {
	store store.Store
}

// New creates a Loader backed by st.
func New(st store.Store) *Loader {
	return &Loader{store: st}
}

// Load inserts each record unless its award number already exists. A failed
// record never aborts the batch.
func (l *Loader) Load(ctx context.Context, records []model.ClassifiedRecord) BatchResult {
	var res BatchResult
	for _, rec := range records {
		res.add(l.LoadOne(ctx, rec))
	}
	zap.L().Info("loader: batch loaded",
		zap.Int("inserted", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
	)
	return res
}

// LoadOne validates and inserts a single record. An existing row is never
// modified; the record is reported as skipped.
func (l *Loader) LoadOne(ctx context.Context, rec model.ClassifiedRecord) RecordResult {
	num := rec.Record.AwardNum
	if err := rec.Record.Validate(); err != nil {
		return l.failed(num, err)
	}

	inserted, err := l.store.InsertAward(ctx, rec)
	if err != nil {
		return l.failed(num, err)
	}
	if !inserted {
		zap.L().Debug("loader: award exists, skipped", zap.String("award_num", num))
		return RecordResult{AwardNum: num, Outcome: OutcomeSkipped}
	}
	return RecordResult{AwardNum: num, Outcome: OutcomeInserted}
}

func (l *Loader) failed(num string, err error) RecordResult {
	le := &model.LoadError{AwardNum: num, Err: err}
	zap.L().Error("loader: load failed", zap.String("award_num", num), zap.Error(err))
	return RecordResult{AwardNum: num, Outcome: OutcomeFailed, Err: le}
}

// ErrNotAppendOnly is returned by Fix when the new correction list does not
// extend the persisted one.
var ErrNotAppendOnly = eris.New("loader: corrections must extend the persisted list")

// ErrNoCorrection is returned by Fix when the update carries no new correction.
var ErrNoCorrection = eris.New("loader: fix requires a new correction")

// Fix overwrites a persisted record. It is the only overwrite path and
// requires at least one new correction appended to the stored history.
func (l *Loader) Fix(ctx context.Context, rec model.ClassifiedRecord) error {
	num := rec.Record.AwardNum
	if err := rec.Record.Validate(); err != nil {
		return &model.LoadError{AwardNum: num, Err: err}
	}

	current, err := l.store.GetAward(ctx, num)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &model.LoadError{AwardNum: num, Err: err}
		}
		return eris.Wrapf(err, "loader: fix %s", num)
	}

	if !extends(rec.Record.Corrections, current.Record.Corrections) {
		return &model.LoadError{AwardNum: num, Err: ErrNotAppendOnly}
	}
	if len(rec.Record.Corrections) == len(current.Record.Corrections) {
		return &model.LoadError{AwardNum: num, Err: ErrNoCorrection}
	}

	if err := l.store.UpdateAward(ctx, rec); err != nil {
		return &model.LoadError{AwardNum: num, Err: err}
	}
	for _, c := range rec.Record.Corrections[len(current.Record.Corrections):] {
		zap.L().Info("loader: correction applied",
			zap.String("award_num", num),
			zap.String("field", string(c.Field)),
			zap.String("old", c.OldValue),
			zap.String("new", c.NewValue),
			zap.String("reason", c.Reason),
		)
	}
	return nil
}

// extends reports whether next starts with every entry of prev, unchanged.
func extends(next, prev []model.Correction) bool {
	if len(next) < len(prev) {
		return false
	}
	for i, c := range prev {
		n := next[i]
		if n.Field != c.Field || n.OldValue != c.OldValue || n.NewValue != c.NewValue ||
			n.Reason != c.Reason || !n.Timestamp.Equal(c.Timestamp) {
			return false
		}
	}
	return true
}
