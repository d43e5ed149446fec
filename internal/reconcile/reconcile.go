// Package reconcile merges the detail and index views of one award, preferring
// the index listing on disagreement.
package reconcile

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/normalize"
)

// Fields is the set of fields both views may carry, in reconciliation order.
var Fields = []model.Field{
	model.FieldLocation,
	model.FieldDate,
	model.FieldAward,
	model.FieldAwardPoints,
	model.FieldExhibitor,
}

// Result reports what a reconciliation changed.
type Result struct {
	Corrections []model.Correction     `json:"corrections,omitempty"`
	Conflicts   []*model.ConflictError `json:"conflicts,omitempty"`
	Filled      []model.Field          `json:"filled,omitempty"`
}

// Changed reports whether any field was written.
func (r Result) Changed() bool {
	return len(r.Corrections) > 0 || len(r.Filled) > 0
}

// Reconciler applies the index-wins resolution policy.
type Reconciler struct {
	aliases *AliasTable
	norm    *normalize.Normalizer
	now     func() time.Time
}

// New creates a Reconciler. A nil table uses the defaults.
func New(aliases *AliasTable) *Reconciler {
	if aliases == nil {
		aliases = DefaultAliasTable()
	}
	return &Reconciler{
		aliases: aliases,
		norm:    normalize.New(aliases),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Aliases returns the reconciler's alias table.
func (r *Reconciler) Aliases() *AliasTable { return r.aliases }

// ConflictReason is the correction reason recorded when the index overrides
// a disagreeing detail value.
func ConflictReason(detail, index string) string {
	return fmt.Sprintf("source conflict: detail=%q index=%q", detail, index)
}

// Equivalent reports whether two spellings of f denote the same value.
func (r *Reconciler) Equivalent(f model.Field, a, b string) bool {
	switch f {
	case model.FieldLocation:
		return r.aliases.Equivalent(a, b)
	case model.FieldDate:
		return fold(normalize.Date(a)) == fold(normalize.Date(b))
	case model.FieldAward:
		return fold(normalize.AwardCode(a)) == fold(normalize.AwardCode(b))
	case model.FieldAwardPoints:
		pa, errA := strconv.Atoi(strings.TrimSpace(a))
		pb, errB := strconv.Atoi(strings.TrimSpace(b))
		if errA == nil && errB == nil {
			return pa == pb
		}
	}
	return fold(a) == fold(b)
}

func bound(v string, ok bool) bool {
	return ok && !normalize.IsPlaceholder(v)
}

// Reconcile merges index into a freshly extracted detail record. Per field:
// both absent leaves it absent; one present is used as is; equivalent values
// take the index spelling; disagreeing values take the index value with a
// conflict and a correction. Nothing has been persisted yet, so equivalent
// substitutions are not corrections. An index entry for a different award
// number is ignored.
func (r *Reconciler) Reconcile(detail model.RawRecord, index model.IndexRecord) (model.RawRecord, Result) {
	out := detail.Clone()
	var res Result
	awardNum := detail.Fields[model.FieldAwardNum]
	if index.AwardNum == "" || (awardNum != "" && index.AwardNum != awardNum) {
		return out, res
	}

	for _, f := range Fields {
		dv, dok := detail.Get(f)
		iv, iok := index.Get(f)
		dok, iok = bound(dv, dok), bound(iv, iok)

		switch {
		case !iok:
			continue
		case !dok:
			out.Set(f, iv)
			res.Filled = append(res.Filled, f)
		case r.Equivalent(f, dv, iv):
			out.Set(f, iv)
		default:
			out.Set(f, iv)
			res.Conflicts = append(res.Conflicts, r.conflict(awardNum, f, dv, iv))
			res.Corrections = append(res.Corrections, model.Correction{
				Timestamp: r.now(),
				Field:     f,
				OldValue:  dv,
				NewValue:  iv,
				Reason:    ConflictReason(dv, iv),
			})
		}
	}
	return out, res
}

// ReconcileStored applies index to a persisted record in place. Every write
// to the stored record, fill or overwrite, appends one correction to rec.
// Index values are canonicalised before comparison so a listing that only
// differs in spelling from the stored canonical form changes nothing.
func (r *Reconciler) ReconcileStored(rec *model.AwardRecord, index model.IndexRecord) Result {
	var res Result
	if index.AwardNum != rec.AwardNum {
		return res
	}

	for _, f := range Fields {
		iv, iok := index.Get(f)
		if !bound(iv, iok) {
			continue
		}
		candidate := r.canonical(f, iv)
		if rec.State(f) == model.StateNotApplicable {
			continue
		}
		stored := rec.Display(f)

		if rec.State(f) == model.StateAbsent {
			if r.assign(rec, f, candidate) {
				res.Filled = append(res.Filled, f)
				r.record(rec, &res, f, "", candidate, FillReason)
			}
			continue
		}
		if stored == candidate {
			continue
		}

		reason := SpellingReason
		if !r.Equivalent(f, stored, candidate) {
			res.Conflicts = append(res.Conflicts, r.conflict(rec.AwardNum, f, stored, iv))
			reason = ConflictReason(stored, iv)
		}
		if r.assign(rec, f, candidate) {
			r.record(rec, &res, f, stored, candidate, reason)
		}
	}
	if res.Changed() {
		*rec = r.norm.Record(*rec)
	}
	return res
}

// Correction reasons for the stored pass.
const (
	FillReason     = "filled from index listing"
	SpellingReason = "index listing spelling"
)

func (r *Reconciler) record(rec *model.AwardRecord, res *Result, f model.Field, old, next, reason string) {
	c := model.Correction{Timestamp: r.now(), Field: f, OldValue: old, NewValue: next, Reason: reason}
	rec.AppendCorrection(c)
	res.Corrections = append(res.Corrections, c)
}

func (r *Reconciler) canonical(f model.Field, v string) string {
	switch f {
	case model.FieldLocation:
		return r.norm.Location(v)
	case model.FieldDate:
		return normalize.Date(v)
	case model.FieldAward:
		return normalize.AwardCode(v)
	}
	return strings.Join(strings.Fields(v), " ")
}

func (r *Reconciler) assign(rec *model.AwardRecord, f model.Field, v string) bool {
	if t := rec.TextField(f); t != nil {
		*t = model.Present(v)
		return true
	}
	if i := rec.IntField(f); i != nil {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			zap.L().Warn("reconcile: ignoring unusable index value",
				zap.String("award_num", rec.AwardNum), zap.String("field", string(f)), zap.String("value", v))
			return false
		}
		*i = model.Present(n)
		return true
	}
	return false
}

func (r *Reconciler) conflict(awardNum string, f model.Field, detail, index string) *model.ConflictError {
	zap.L().Warn("reconcile: source conflict",
		zap.String("award_num", awardNum),
		zap.String("field", string(f)),
		zap.String("detail", detail),
		zap.String("index", index),
	)
	return &model.ConflictError{AwardNum: awardNum, Field: f, DetailValue: detail, IndexValue: index}
}
