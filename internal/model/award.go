package model

import (
	"time"
)

// MeasurementType classifies which morphometric field group applies to a record.
type MeasurementType string

const (
	MeasurementLipLateralSepal MeasurementType = "Lip&LateralSepal"
	MeasurementPouchSynsepal   MeasurementType = "Pouch&SynselPal"
	MeasurementOther           MeasurementType = "Other"
)

// Valid reports whether t is one of the three enumerated types.
func (t MeasurementType) Valid() bool {
	switch t {
	case MeasurementLipLateralSepal, MeasurementPouchSynsepal, MeasurementOther:
		return true
	}
	return false
}

// commonMeasurements are required for every measured (non-Other) type.
var commonMeasurements = []Field{FieldNS, FieldNSV, FieldDSW, FieldDSL, FieldPETW, FieldPETL}

// RequiredMeasurements returns the morphometric fields a record of type t must carry.
// Other has none: the measurement tier does not apply.
func (t MeasurementType) RequiredMeasurements() []Field {
	var group []Field
	switch t {
	case MeasurementLipLateralSepal:
		group = []Field{FieldLSW, FieldLSL, FieldLIPW, FieldLIPL}
	case MeasurementPouchSynsepal:
		group = PouchFields
	default:
		return nil
	}
	out := make([]Field, 0, len(commonMeasurements)+len(group))
	out = append(out, commonMeasurements...)
	return append(out, group...)
}

// Measurements is the morphometric sub-record of an award.
type Measurements struct {
	Type              MeasurementType `json:"type"`
	Dimensions        map[Field]Float `json:"dimensions"`
	NumFlowers        Int             `json:"numFlowers"`
	NumBuds           Int             `json:"numBuds"`
	NumInflorescences Int             `json:"numInflorescences"`
	Description       Text            `json:"description"`
}

// Get returns the named dimension; missing entries are Absent.
func (m Measurements) Get(f Field) Float {
	return m.Dimensions[f]
}

// Has reports whether every field in fs is present.
func (m Measurements) Has(fs ...Field) bool {
	for _, f := range fs {
		if !m.Get(f).IsPresent() {
			return false
		}
	}
	return true
}

// Correction is one append-only audit entry on a record.
type Correction struct {
	Timestamp time.Time `json:"timestamp"`
	Field     Field     `json:"field"`
	OldValue  string    `json:"oldValue"`
	NewValue  string    `json:"newValue"`
	Reason    string    `json:"reason"`
}

// AwardRecord is the canonical structured representation of one judged entry.
type AwardRecord struct {
	AwardNum     string       `json:"awardNum"`
	Award        Text         `json:"award"`
	AwardPoints  Int          `json:"awardPoints"`
	Location     Text         `json:"location"`
	Date         Text         `json:"date"`
	Genus        Text         `json:"genus"`
	Species      Text         `json:"species"`
	Clone        Text         `json:"clone"`
	Cross        Text         `json:"cross"`
	Exhibitor    Text         `json:"exhibitor"`
	Photographer Text         `json:"photographer"`
	Photo        Text         `json:"photo"`
	Measurements Measurements `json:"measurements"`

	SourceURL     Text      `json:"sourceUrl"`
	HTMLReference string    `json:"htmlReference"`
	ScrapedDate   time.Time `json:"scrapedDate"`
	Year          int       `json:"year"`
	RuleSet       string    `json:"ruleSet,omitempty"`

	Corrections []Correction `json:"corrections"`
}

// TextField returns a pointer to the named text field, or nil when f is not a
// text field of the record.
func (r *AwardRecord) TextField(f Field) *Text {
	switch f {
	case FieldAward:
		return &r.Award
	case FieldLocation:
		return &r.Location
	case FieldDate:
		return &r.Date
	case FieldGenus:
		return &r.Genus
	case FieldSpecies:
		return &r.Species
	case FieldClone:
		return &r.Clone
	case FieldCross:
		return &r.Cross
	case FieldExhibitor:
		return &r.Exhibitor
	case FieldPhotographer:
		return &r.Photographer
	case FieldPhoto:
		return &r.Photo
	case FieldDescription:
		return &r.Measurements.Description
	}
	return nil
}

// IntField returns a pointer to the named integer field, or nil.
func (r *AwardRecord) IntField(f Field) *Int {
	switch f {
	case FieldAwardPoints:
		return &r.AwardPoints
	case FieldNumFlowers:
		return &r.Measurements.NumFlowers
	case FieldNumBuds:
		return &r.Measurements.NumBuds
	case FieldNumInflorescences:
		return &r.Measurements.NumInflorescences
	}
	return nil
}

// State reports the tag of any named field. awardNum is present when non-empty.
func (r *AwardRecord) State(f Field) ValueState {
	if f == FieldAwardNum {
		if r.AwardNum == "" {
			return StateAbsent
		}
		return StatePresent
	}
	if t := r.TextField(f); t != nil {
		return t.State()
	}
	if i := r.IntField(f); i != nil {
		return i.State()
	}
	if f.IsMorphometric() {
		return r.Measurements.Get(f).State()
	}
	return StateAbsent
}

// Display renders any named field as text ("" when absent).
func (r *AwardRecord) Display(f Field) string {
	if f == FieldAwardNum {
		return r.AwardNum
	}
	if t := r.TextField(f); t != nil {
		return t.Text()
	}
	if i := r.IntField(f); i != nil {
		return i.Text()
	}
	if f.IsMorphometric() {
		return r.Measurements.Get(f).Text()
	}
	return ""
}

// AppendCorrection records one mutation. It is the only way the correction
// list grows; entries are never rewritten or removed.
func (r *AwardRecord) AppendCorrection(c Correction) {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}
	r.Corrections = append(r.Corrections, c)
}

// LastCorrection returns the most recent correction timestamp, or zero.
func (r *AwardRecord) LastCorrection() time.Time {
	var latest time.Time
	for _, c := range r.Corrections {
		if c.Timestamp.After(latest) {
			latest = c.Timestamp
		}
	}
	return latest
}

// IsDisplayClass reports whether the award code is a display/quality class
// or the record has been classified as a non-measured (Other) entry.
func (r *AwardRecord) IsDisplayClass() bool {
	if r.Measurements.Type == MeasurementOther {
		return true
	}
	code, ok := r.Award.Get()
	return ok && IsDisplayAwardCode(code)
}

// Validate checks the record invariants enforced at load time.
func (r *AwardRecord) Validate() error {
	if r.AwardNum == "" {
		return &ValidationError{Field: FieldAwardNum, Message: "award number is required"}
	}
	if !r.Measurements.Type.Valid() {
		return &ValidationError{
			AwardNum: r.AwardNum,
			Field:    "measurementType",
			Message:  "measurement type " + quote(string(r.Measurements.Type)) + " is not one of the enumerated types",
		}
	}
	if pts, ok := r.AwardPoints.Get(); ok && (pts < 0 || pts > 100) {
		return &ValidationError{AwardNum: r.AwardNum, Field: FieldAwardPoints, Message: "award points out of range 0-100"}
	}
	if len(r.Corrections) > 0 && !r.ScrapedDate.IsZero() && !r.ScrapedDate.Before(r.LastCorrection()) {
		return &ValidationError{AwardNum: r.AwardNum, Field: "corrections", Message: "scraped date is not older than the latest correction"}
	}
	return nil
}

func quote(s string) string { return "\"" + s + "\"" }
