package pipeline

import (
	"context"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/awards-cli/internal/classify"
	"github.com/sells-group/awards-cli/internal/model"
)

// ManualFix is one hand-made correction of a persisted field.
type ManualFix struct {
	AwardNum string `yaml:"award_num"`
	Field    string `yaml:"field"`
	Value    string `yaml:"value"`
	Reason   string `yaml:"reason"`
}

// ReadFixes parses a YAML list of manual fixes.
func ReadFixes(path string) ([]ManualFix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: read fixes %s", path)
	}
	var fixes []ManualFix
	if err := yaml.Unmarshal(data, &fixes); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse fixes %s", path)
	}
	return fixes, nil
}

// FixReport summarizes ApplyFixes.
type FixReport struct {
	Applied int                `json:"applied"`
	Errors  []model.BatchError `json:"errors"`
}

// ApplyFixes applies each fix through the audited overwrite path. An empty
// value clears the field; "N/A" marks a plant-identity field of a display
// award not applicable and is rejected elsewhere. Fixes are
// applied in order, so several fixes to one award stack their corrections.
func (p *Pipeline) ApplyFixes(ctx context.Context, fixes []ManualFix) *FixReport {
	report := &FixReport{Errors: []model.BatchError{}}
	for _, fx := range fixes {
		if err := p.applyFix(ctx, fx); err != nil {
			report.Errors = append(report.Errors, batchError("fix", 0, "", fx.AwardNum, err))
			continue
		}
		report.Applied++
		if err := p.syncRecord(ctx, fx.AwardNum); err != nil {
			report.Errors = append(report.Errors, batchError("fix", 0, "", fx.AwardNum, err))
		}
	}
	return report
}

func (p *Pipeline) applyFix(ctx context.Context, fx ManualFix) error {
	f := model.Field(fx.Field)
	if fx.AwardNum == "" {
		return &model.ValidationError{Field: model.FieldAwardNum, Message: "fix has no award number"}
	}
	if f == model.FieldAwardNum {
		return &model.ValidationError{AwardNum: fx.AwardNum, Field: f, Message: "award number is immutable"}
	}

	current, err := p.store.GetAward(ctx, fx.AwardNum)
	if err != nil {
		return eris.Wrapf(err, "pipeline: fix %s", fx.AwardNum)
	}
	rec := current.Record
	rec.Corrections = append([]model.Correction(nil), rec.Corrections...)

	old := rec.Display(f)
	if err := setField(&rec, f, strings.TrimSpace(fx.Value)); err != nil {
		return err
	}
	reason := fx.Reason
	if reason == "" {
		reason = "manual fix"
	}
	rec.AppendCorrection(model.Correction{
		Timestamp: p.now(),
		Field:     f,
		OldValue:  old,
		NewValue:  rec.Display(f),
		Reason:    reason,
	})
	rec = p.norm.Record(rec)
	return p.loader.Fix(ctx, classify.Record(rec))
}

// setField writes v into the named field of rec.
func setField(rec *model.AwardRecord, f model.Field, v string) error {
	invalid := func(msg string) error {
		return &model.ValidationError{AwardNum: rec.AwardNum, Field: f, Message: msg}
	}

	if t := rec.TextField(f); t != nil {
		switch v {
		case "":
			*t = model.Absent[string]()
		case model.NotApplicableText:
			if !f.IsPlantIdentity() || !rec.IsDisplayClass() {
				return invalid("N/A is only valid for plant identity on display awards")
			}
			*t = model.NotApplicable[string]()
		default:
			*t = model.Present(v)
		}
		return nil
	}

	if i := rec.IntField(f); i != nil {
		switch v {
		case "":
			*i = model.Absent[int]()
		case model.NotApplicableText:
			if f != model.FieldAwardPoints || !rec.IsDisplayClass() {
				return invalid("N/A is only valid for points on display awards")
			}
			*i = model.NotApplicable[int]()
		default:
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return invalid("not a non-negative integer: " + strconv.Quote(v))
			}
			if f == model.FieldAwardPoints && n > 100 {
				return invalid("points above 100")
			}
			*i = model.Present(n)
		}
		return nil
	}

	if f.IsMorphometric() {
		if rec.Measurements.Dimensions == nil {
			rec.Measurements.Dimensions = make(map[model.Field]model.Float)
		}
		switch v {
		case "":
			delete(rec.Measurements.Dimensions, f)
		case model.NotApplicableText:
			if !rec.IsDisplayClass() {
				return invalid("N/A is only valid for measurements on display awards")
			}
			rec.Measurements.Dimensions[f] = model.NotApplicable[float64]()
		default:
			x, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(v, "cm")), 64)
			if err != nil || x < 0 || math.IsNaN(x) || math.IsInf(x, 0) {
				return invalid("not a non-negative measurement: " + strconv.Quote(v))
			}
			rec.Measurements.Dimensions[f] = model.Present(x)
		}
		return nil
	}

	return invalid("unknown field")
}
