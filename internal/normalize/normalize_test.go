package normalize

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/awards-cli/internal/model"
)

type aliasMap map[string]string

func (m aliasMap) Canonical(s string) string {
	if c, ok := m[strings.ToLower(s)]; ok {
		return c
	}
	return s
}

var testAliases = aliasMap{
	"filoli":                "Filoli Historic House & Garden",
	"filoli historic house": "Filoli Historic House & Garden",
	"sf":                    "San Francisco",
}

func raw(fields map[model.Field]string) model.RawRecord {
	return model.RawRecord{
		DocumentID:    "20251234",
		Year:          2025,
		SourceURL:     "https://example.org/20251234",
		HTMLReference: "2025/documents/20251234.html",
		ScrapedDate:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		RuleSet:       "current",
		Fields:        fields,
	}
}

func TestFromRaw_Coercion(t *testing.T) {
	n := New(testAliases)
	rec := n.FromRaw(raw(map[model.Field]string{
		model.FieldAwardNum:    " 20251234 ",
		model.FieldAward:       "am",
		model.FieldAwardPoints: "85",
		model.FieldDate:        "Jan. 7, 2025",
		model.FieldLocation:    "SF",
		model.FieldGenus:       "Paphiopedilum",
		model.FieldSpecies:     "rothschildianum",
		model.FieldClone:       "  Big   Boy ",
		model.FieldExhibitor:   "Jane Doe",
		model.FieldNumFlowers:  "3",
		model.FieldNS:          "12.5 cm",
		model.FieldNSV:         "10",
	}))

	assert.Equal(t, "20251234", rec.AwardNum)
	assert.Equal(t, model.Present("AM"), rec.Award)
	assert.Equal(t, model.Present(85), rec.AwardPoints)
	assert.Equal(t, model.Present("January 7, 2025"), rec.Date)
	assert.Equal(t, model.Present("San Francisco"), rec.Location)
	assert.Equal(t, model.Present("Big Boy"), rec.Clone)
	assert.Equal(t, model.Present(3), rec.Measurements.NumFlowers)
	assert.Equal(t, model.Present(12.5), rec.Measurements.Get(model.FieldNS))
	assert.Equal(t, model.Present(10.0), rec.Measurements.Get(model.FieldNSV))
	assert.True(t, rec.Measurements.Get(model.FieldDSW).IsAbsent())
	assert.True(t, rec.Cross.IsAbsent())
	assert.Equal(t, model.MeasurementLipLateralSepal, rec.Measurements.Type)

	assert.Equal(t, model.Present("https://example.org/20251234"), rec.SourceURL)
	assert.Equal(t, "2025/documents/20251234.html", rec.HTMLReference)
	assert.Equal(t, 2025, rec.Year)
	assert.Equal(t, "current", rec.RuleSet)
	assert.NotNil(t, rec.Corrections)
	assert.Empty(t, rec.Corrections)
}

func TestFromRaw_Placeholders(t *testing.T) {
	for _, p := range []string{"", "N/A", "NA", "n/a", "unknown", "TBD", "-", "none", " None "} {
		t.Run(p, func(t *testing.T) {
			rec := New(nil).FromRaw(raw(map[model.Field]string{
				model.FieldAwardNum:     "20251234",
				model.FieldAward:        "AM",
				model.FieldPhotographer: p,
				model.FieldGenus:        p,
				model.FieldAwardPoints:  p,
				model.FieldNS:           p,
			}))
			assert.True(t, rec.Photographer.IsAbsent())
			assert.True(t, rec.Genus.IsAbsent())
			assert.True(t, rec.AwardPoints.IsAbsent())
			assert.NotContains(t, rec.Measurements.Dimensions, model.FieldNS)
		})
	}
}

func TestFromRaw_DisplayAwardNotApplicable(t *testing.T) {
	rec := New(nil).FromRaw(raw(map[model.Field]string{
		model.FieldAwardNum:     "20251300",
		model.FieldAward:        "AQ",
		model.FieldGenus:        "N/A",
		model.FieldSpecies:      "n/a",
		model.FieldClone:        "unknown",
		model.FieldPhotographer: "N/A",
	}))

	assert.True(t, rec.Genus.IsNotApplicable())
	assert.True(t, rec.Species.IsNotApplicable())
	assert.True(t, rec.Clone.IsAbsent(), "only textual N/A is not-applicable")
	assert.True(t, rec.Photographer.IsAbsent(), "only plant identity fields are exempt")
	assert.Equal(t, model.MeasurementOther, rec.Measurements.Type)
}

func TestFromRaw_PointsOutOfRange(t *testing.T) {
	rec := New(nil).FromRaw(raw(map[model.Field]string{
		model.FieldAwardNum:    "20251234",
		model.FieldAwardPoints: "185",
		model.FieldNumBuds:     "two",
	}))
	assert.True(t, rec.AwardPoints.IsAbsent())
	assert.True(t, rec.Measurements.NumBuds.IsAbsent())
	require.NoError(t, rec.Validate())
}

func TestDate(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"January 7, 2025", "January 7, 2025"},
		{"January 7 2025", "January 7, 2025"},
		{"Jan 7, 2025", "January 7, 2025"},
		{"Jan. 7, 2025", "January 7, 2025"},
		{"Sept. 14, 2019", "September 14, 2019"},
		{"7 January 2025", "January 7, 2025"},
		{"1/7/2025", "January 7, 2025"},
		{"01/07/2025", "January 7, 2025"},
		{"2025-01-07", "January 7, 2025"},
		{"  sometime in spring ", "sometime in spring"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Date(tt.in))
		})
	}
}

func TestAwardCode(t *testing.T) {
	assert.Equal(t, "HCC", AwardCode("hcc/aos"))
	assert.Equal(t, "AM", AwardCode("Award of Merit"))
	assert.Equal(t, "JC", AwardCode("Judges' Commendation"))
	assert.Equal(t, "Best in Show", AwardCode(" Best in  Show "))
}

func TestClassifyMeasurements(t *testing.T) {
	pouch := map[model.Field]model.Float{
		model.FieldSYNSW: model.Present(3.0),
		model.FieldSYNSL: model.Present(5.5),
		model.FieldPCHW:  model.Present(2.5),
		model.FieldPCHL:  model.Present(4.8),
	}
	tests := []struct {
		name string
		rec  model.AwardRecord
		want model.MeasurementType
	}{
		{"pouch quartet", model.AwardRecord{Award: model.Present("AM"), Measurements: model.Measurements{Dimensions: pouch}}, model.MeasurementPouchSynsepal},
		{"partial pouch", model.AwardRecord{Award: model.Present("AM"), Measurements: model.Measurements{Dimensions: map[model.Field]model.Float{model.FieldSYNSW: model.Present(3.0)}}}, model.MeasurementLipLateralSepal},
		{"display code beats pouch", model.AwardRecord{Award: model.Present("ST"), Measurements: model.Measurements{Dimensions: pouch}}, model.MeasurementOther},
		{"trophy marker", model.AwardRecord{Award: model.Present("AM"), Measurements: model.Measurements{Description: model.Present("Trophy for best display"), Dimensions: pouch}}, model.MeasurementOther},
		{"display genus", model.AwardRecord{Genus: model.Present("Display")}, model.MeasurementOther},
		{"nothing", model.AwardRecord{}, model.MeasurementLipLateralSepal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyMeasurements(&tt.rec))
		})
	}
}

func TestRecord_IdempotentProperty(t *testing.T) {
	n := New(testAliases)

	properties := gopter.NewProperties(nil)
	properties.Property("normalizing twice equals normalizing once", prop.ForAll(
		func(award, date, location, genus, clone, description string, pouch bool) bool {
			fields := map[model.Field]string{
				model.FieldAwardNum:    "20250001",
				model.FieldAward:       award,
				model.FieldDate:        date,
				model.FieldLocation:    location,
				model.FieldGenus:       genus,
				model.FieldClone:       clone,
				model.FieldDescription: description,
				model.FieldNS:          "4.2cm",
			}
			if pouch {
				for _, f := range model.PouchFields {
					fields[f] = "1.5"
				}
			}
			once := n.FromRaw(raw(fields))
			twice := n.Record(once)
			return assert.ObjectsAreEqual(once, twice)
		},
		gen.OneConstOf("AM", "hcc/aos", "AQ", "N/A", "Award of Merit", "", "st"),
		gen.OneConstOf("Jan. 7, 2025", "2025-01-07", "January 7 2025", "soon", "TBD"),
		gen.OneConstOf("Filoli", "filoli historic house", "SF", "  Sonoma  County ", "unknown"),
		gen.OneConstOf("Paphiopedilum", "N/A", "Display", "  Cattleya "),
		gen.OneConstOf("Big Boy", "n/a", "", "-"),
		gen.OneConstOf("", "Trophy winner", "Three flowers"),
		gen.Bool(),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestRecord_MeasurementPrecedenceProperty(t *testing.T) {
	n := New(nil)
	codes := make([]interface{}, len(model.AwardCodes))
	for i, c := range model.AwardCodes {
		codes[i] = c
	}

	properties := gopter.NewProperties(nil)
	properties.Property("display beats pouch beats lip", prop.ForAll(
		func(code string, pouch bool) bool {
			fields := map[model.Field]string{model.FieldAwardNum: "20250002", model.FieldAward: code}
			if pouch {
				for _, f := range model.PouchFields {
					fields[f] = "2.0"
				}
			}
			got := n.FromRaw(raw(fields)).Measurements.Type
			switch {
			case model.IsDisplayAwardCode(code):
				return got == model.MeasurementOther
			case pouch:
				return got == model.MeasurementPouchSynsepal
			default:
				return got == model.MeasurementLipLateralSepal
			}
		},
		gen.OneConstOf(codes...),
		gen.Bool(),
	))
	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
