// Package classify grades award records by residual data-completeness risk.
package classify

import (
	"fmt"
	"strings"

	"github.com/sells-group/awards-cli/internal/model"
)

// Tier is one level of the field taxonomy.
type Tier struct {
	Severity model.Severity
	Fields   []model.Field
}

// Taxonomy orders field tiers from most to least severe. Measurement
// requirements depend on the record's measurement type and are not listed.
var Taxonomy = []Tier{
	{Severity: model.SeverityCritical, Fields: []model.Field{
		model.FieldAwardNum, model.FieldAward, model.FieldDate,
		model.FieldLocation, model.FieldGenus, model.FieldExhibitor,
	}},
	{Severity: model.SeverityImportant, Fields: []model.Field{
		model.FieldSpecies, model.FieldPhotographer, model.FieldCross,
	}},
}

// Optional fields are reported when missing but never raise severity.
var Optional = []model.Field{model.FieldClone, model.FieldAwardPoints}

// Classify reports which fields rec is missing and the worst tier they hit.
// NotApplicable values are never missing. Display-class records are exempt
// from plant-identity fields.
func Classify(rec *model.AwardRecord) model.IssueReport {
	display := rec.IsDisplayClass()
	missing := func(f model.Field) bool {
		if display && f.IsPlantIdentity() {
			return false
		}
		return rec.State(f) == model.StateAbsent
	}

	report := model.IssueReport{Severity: model.SeverityNone, Missing: []string{}}
	var parts []string
	raise := func(s model.Severity, fields []string) {
		if len(fields) == 0 {
			return
		}
		report.Missing = append(report.Missing, fields...)
		if s.Rank() > report.Severity.Rank() {
			report.Severity = s
		}
		parts = append(parts, fmt.Sprintf("%s: %s", s, strings.Join(fields, ", ")))
	}

	for _, tier := range Taxonomy {
		raise(tier.Severity, collect(tier.Fields, missing))
	}
	raise(model.SeverityMeasurement, collect(rec.Measurements.Type.RequiredMeasurements(), missing))

	if opt := collect(Optional, missing); len(opt) > 0 {
		report.Missing = append(report.Missing, opt...)
		parts = append(parts, "optional: "+strings.Join(opt, ", "))
	}

	if len(parts) == 0 {
		report.Explanation = "complete"
	} else {
		report.Explanation = "missing " + strings.Join(parts, "; ")
	}
	return report
}

func collect(fields []model.Field, missing func(model.Field) bool) []string {
	var out []string
	for _, f := range fields {
		if missing(f) {
			out = append(out, string(f))
		}
	}
	return out
}

// Record classifies rec and pairs it with its report.
func Record(rec model.AwardRecord) model.ClassifiedRecord {
	return model.ClassifiedRecord{Record: rec, Issues: Classify(&rec)}
}
