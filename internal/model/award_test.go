package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasurementType_RequiredMeasurements(t *testing.T) {
	lip := MeasurementLipLateralSepal.RequiredMeasurements()
	assert.Contains(t, lip, FieldLIPW)
	assert.NotContains(t, lip, FieldPCHW)
	assert.Len(t, lip, 10)

	pouch := MeasurementPouchSynsepal.RequiredMeasurements()
	assert.Contains(t, pouch, FieldSYNSL)
	assert.NotContains(t, pouch, FieldLIPL)

	assert.Empty(t, MeasurementOther.RequiredMeasurements())
	assert.False(t, MeasurementType("Sepal").Valid())
}

func TestAwardRecord_FieldAccessors(t *testing.T) {
	rec := AwardRecord{
		AwardNum:    "20251234",
		Award:       Present("AM"),
		AwardPoints: Present(85),
		Measurements: Measurements{
			Type:       MeasurementLipLateralSepal,
			Dimensions: map[Field]Float{FieldNS: Present(12.5)},
		},
	}

	assert.Equal(t, StatePresent, rec.State(FieldAwardNum))
	assert.Equal(t, "85", rec.Display(FieldAwardPoints))
	assert.Equal(t, "12.5", rec.Display(FieldNS))
	assert.Equal(t, StateAbsent, rec.State(FieldGenus))
	assert.Equal(t, StateAbsent, rec.State(FieldLSW))

	*rec.TextField(FieldGenus) = Present("Cattleya")
	assert.Equal(t, "Cattleya", rec.Genus.OrZero())
	assert.Nil(t, rec.TextField(FieldAwardPoints))
}

func TestAwardRecord_Validate(t *testing.T) {
	scraped := time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC)
	base := func() AwardRecord {
		return AwardRecord{
			AwardNum:     "20251234",
			ScrapedDate:  scraped,
			Measurements: Measurements{Type: MeasurementOther},
		}
	}

	rec := base()
	require.NoError(t, rec.Validate())

	rec = base()
	rec.AwardNum = ""
	assert.Error(t, rec.Validate())

	rec = base()
	rec.Measurements.Type = ""
	assert.ErrorContains(t, rec.Validate(), "measurement type")

	rec = base()
	rec.AwardPoints = Present(101)
	assert.ErrorContains(t, rec.Validate(), "out of range")

	rec = base()
	rec.AppendCorrection(Correction{Timestamp: scraped.Add(-time.Hour), Field: FieldLocation})
	assert.ErrorContains(t, rec.Validate(), "scraped date")

	rec = base()
	rec.AppendCorrection(Correction{Timestamp: scraped.Add(time.Hour), Field: FieldLocation})
	assert.NoError(t, rec.Validate())
}

func TestAwardRecord_IsDisplayClass(t *testing.T) {
	rec := AwardRecord{Award: Present("AQ"), Measurements: Measurements{Type: MeasurementLipLateralSepal}}
	assert.True(t, rec.IsDisplayClass())

	rec = AwardRecord{Award: Present("AM"), Measurements: Measurements{Type: MeasurementOther}}
	assert.True(t, rec.IsDisplayClass())

	rec = AwardRecord{Award: Present("HCC"), Measurements: Measurements{Type: MeasurementLipLateralSepal}}
	assert.False(t, rec.IsDisplayClass())
}

func TestRawRecord_SetClearsGap(t *testing.T) {
	r := RawRecord{}
	r.RecomputeGaps()
	assert.Contains(t, r.Gaps, FieldGenus)

	r.Set(FieldGenus, "Cattleya")
	assert.NotContains(t, r.Gaps, FieldGenus)
	v, ok := r.Get(FieldGenus)
	assert.True(t, ok)
	assert.Equal(t, "Cattleya", v)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, ErrorKindParse, KindOf(&ParseError{DocumentID: "x"}))
	assert.Equal(t, ErrorKindValidation, KindOf(&LoadError{AwardNum: "1", Err: &ValidationError{}}))
	assert.Equal(t, ErrorKindLoad, KindOf(&LoadError{AwardNum: "1"}))
	assert.Equal(t, ErrorKindFetch, KindOf(&FetchError{URL: "u"}))
	assert.Equal(t, ErrorKindInternal, KindOf(assert.AnError))
}
