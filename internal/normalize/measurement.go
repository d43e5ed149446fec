package normalize

import (
	"strings"

	"github.com/sells-group/awards-cli/internal/model"
)

// displayMarkers flag a display or trophy entry wherever they appear in the
// plant name, award code or description.
var displayMarkers = []string{"display", "trophy"}

// HasDisplayIndicator reports whether rec is a display entry: a display award
// class or a display marker in genus, species, award or description.
func HasDisplayIndicator(rec *model.AwardRecord) bool {
	if code, ok := rec.Award.Get(); ok && model.IsDisplayAwardCode(code) {
		return true
	}
	for _, t := range []model.Text{rec.Genus, rec.Species, rec.Award, rec.Measurements.Description} {
		v, ok := t.Get()
		if !ok {
			continue
		}
		lower := strings.ToLower(v)
		for _, m := range displayMarkers {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return false
}

// ClassifyMeasurements picks the measurement group for rec. A display
// indicator wins over everything; a complete pouch quartet selects
// Pouch&SynselPal; everything else is Lip&LateralSepal.
func ClassifyMeasurements(rec *model.AwardRecord) model.MeasurementType {
	if HasDisplayIndicator(rec) {
		return model.MeasurementOther
	}
	if rec.Measurements.Has(model.PouchFields...) {
		return model.MeasurementPouchSynsepal
	}
	return model.MeasurementLipLateralSepal
}
