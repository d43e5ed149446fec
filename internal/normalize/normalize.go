// Package normalize coerces raw field bindings into typed award records and
// canonicalises their spelling.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/model"
)

// Canonicalizer maps a location spelling to its canonical form. Canonical
// must return canonical forms unchanged.
type Canonicalizer interface {
	Canonical(s string) string
}

type identity struct{}

func (identity) Canonical(s string) string { return s }

// Normalizer turns RawRecords into AwardRecords.
type Normalizer struct {
	locations Canonicalizer
}

// New creates a Normalizer. A nil canonicalizer leaves locations as spelled.
func New(locations Canonicalizer) *Normalizer {
	if locations == nil {
		locations = identity{}
	}
	return &Normalizer{locations: locations}
}

var (
	spaceRe     = regexp.MustCompile(`\s+`)
	cmSuffixRe  = regexp.MustCompile(`(?i)\s*cm\.?$`)
	placeholder = map[string]bool{
		"":        true,
		"n/a":     true,
		"na":      true,
		"unknown": true,
		"tbd":     true,
		"-":       true,
		"none":    true,
	}
)

func collapse(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// IsPlaceholder reports whether s stands for "no value".
func IsPlaceholder(s string) bool {
	return placeholder[strings.ToLower(collapse(s))]
}

func isNotApplicableText(s string) bool {
	switch strings.ToLower(collapse(s)) {
	case "n/a", "na":
		return true
	}
	return false
}

// FromRaw coerces raw into a typed record and canonicalises it.
func (n *Normalizer) FromRaw(raw model.RawRecord) model.AwardRecord {
	rec := model.AwardRecord{
		AwardNum:      collapse(raw.Fields[model.FieldAwardNum]),
		HTMLReference: raw.HTMLReference,
		ScrapedDate:   raw.ScrapedDate,
		Year:          raw.Year,
		RuleSet:       raw.RuleSet,
		Corrections:   []model.Correction{},
		Measurements: model.Measurements{
			Dimensions: make(map[model.Field]model.Float),
		},
	}
	if raw.SourceURL != "" {
		rec.SourceURL = model.Present(raw.SourceURL)
	}

	for _, f := range model.RecordFields {
		v, ok := raw.Fields[f]
		if !ok {
			continue
		}
		if t := rec.TextField(f); t != nil {
			*t = model.Present(v)
			continue
		}
		if i := rec.IntField(f); i != nil {
			*i = n.integer(rec.AwardNum, f, v)
		}
	}
	for _, f := range model.MorphometricFields {
		if v, ok := raw.Fields[f]; ok {
			if d := dimension(v); d.IsPresent() {
				rec.Measurements.Dimensions[f] = d
			}
		}
	}
	return n.Record(rec)
}

func (n *Normalizer) integer(awardNum string, f model.Field, v string) model.Int {
	if IsPlaceholder(v) {
		return model.Absent[int]()
	}
	i, err := strconv.Atoi(collapse(v))
	if err != nil || i < 0 {
		zap.L().Warn("normalize: unparseable integer",
			zap.String("award_num", awardNum), zap.String("field", string(f)), zap.String("value", v))
		return model.Absent[int]()
	}
	if f == model.FieldAwardPoints && i > 100 {
		zap.L().Warn("normalize: award points out of range",
			zap.String("award_num", awardNum), zap.Int("value", i))
		return model.Absent[int]()
	}
	return model.Present(i)
}

func dimension(v string) model.Float {
	if IsPlaceholder(v) {
		return model.Absent[float64]()
	}
	f, err := strconv.ParseFloat(cmSuffixRe.ReplaceAllString(collapse(v), ""), 64)
	if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return model.Absent[float64]()
	}
	return model.Present(f)
}

// Record canonicalises an already-typed record. It is idempotent:
// Record(Record(x)) equals Record(x).
func (n *Normalizer) Record(rec model.AwardRecord) model.AwardRecord {
	rec.AwardNum = collapse(rec.AwardNum)
	if rec.Corrections == nil {
		rec.Corrections = []model.Correction{}
	}
	dims := make(map[model.Field]model.Float, len(rec.Measurements.Dimensions))
	for f, d := range rec.Measurements.Dimensions {
		if d.State() != model.StateAbsent {
			dims[f] = d
		}
	}
	rec.Measurements.Dimensions = dims

	for _, f := range model.RecordFields {
		t := rec.TextField(f)
		if t == nil {
			continue
		}
		if v, ok := t.Get(); ok {
			*t = model.Present(collapse(v))
		}
	}

	if code, ok := rec.Award.Get(); ok {
		rec.Award = model.Present(AwardCode(code))
	}

	display := HasDisplayIndicator(&rec)
	for _, f := range model.RecordFields {
		t := rec.TextField(f)
		if t == nil {
			continue
		}
		v, ok := t.Get()
		if !ok || !IsPlaceholder(v) {
			continue
		}
		if display && f.IsPlantIdentity() && isNotApplicableText(v) {
			*t = model.NotApplicable[string]()
		} else {
			*t = model.Absent[string]()
		}
	}

	if d, ok := rec.Date.Get(); ok {
		rec.Date = model.Present(Date(d))
	}
	if l, ok := rec.Location.Get(); ok {
		rec.Location = model.Present(collapse(n.locations.Canonical(l)))
	}

	rec.Measurements.Type = ClassifyMeasurements(&rec)
	return rec
}

// Location returns the canonical spelling of a location.
func (n *Normalizer) Location(s string) string {
	return collapse(n.locations.Canonical(collapse(s)))
}
