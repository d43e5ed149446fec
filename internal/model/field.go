package model

// Field names one extractable attribute of an award record. The string form
// is the field name used in correction entries, issue reports and the
// intermediate document.
type Field string

// Identity, attribution and provenance fields.
const (
	FieldAwardNum     Field = "awardNum"
	FieldAward        Field = "award"
	FieldAwardPoints  Field = "awardPoints"
	FieldLocation     Field = "location"
	FieldDate         Field = "date"
	FieldGenus        Field = "genus"
	FieldSpecies      Field = "species"
	FieldClone        Field = "clone"
	FieldCross        Field = "cross"
	FieldExhibitor    Field = "exhibitor"
	FieldPhotographer Field = "photographer"
	FieldPhoto        Field = "photo"
	FieldDescription  Field = "description"
)

// Count fields.
const (
	FieldNumFlowers        Field = "numFlowers"
	FieldNumBuds           Field = "numBuds"
	FieldNumInflorescences Field = "numInflorescences"
)

// Morphometric fields, all in cm.
const (
	FieldNS    Field = "NS"
	FieldNSV   Field = "NSV"
	FieldDSW   Field = "DSW"
	FieldDSL   Field = "DSL"
	FieldPETW  Field = "PETW"
	FieldPETL  Field = "PETL"
	FieldLSW   Field = "LSW"
	FieldLSL   Field = "LSL"
	FieldLIPW  Field = "LIPW"
	FieldLIPL  Field = "LIPL"
	FieldSYNSW Field = "SYNSW"
	FieldSYNSL Field = "SYNSL"
	FieldPCHW  Field = "PCHW"
	FieldPCHL  Field = "PCHL"
)

// MorphometricFields lists every named measurement in canonical order.
var MorphometricFields = []Field{
	FieldNS, FieldNSV, FieldDSW, FieldDSL, FieldPETW, FieldPETL,
	FieldLSW, FieldLSL, FieldLIPW, FieldLIPL,
	FieldSYNSW, FieldSYNSL, FieldPCHW, FieldPCHL,
}

// PouchFields is the quartet that identifies a pouch/synsepal measurement group.
var PouchFields = []Field{FieldSYNSW, FieldSYNSL, FieldPCHW, FieldPCHL}

// RecordFields lists every non-measurement field an extractor may bind.
var RecordFields = []Field{
	FieldAwardNum, FieldAward, FieldAwardPoints, FieldLocation, FieldDate,
	FieldGenus, FieldSpecies, FieldClone, FieldCross,
	FieldExhibitor, FieldPhotographer, FieldPhoto, FieldDescription,
	FieldNumFlowers, FieldNumBuds, FieldNumInflorescences,
}

// AllFields returns RecordFields followed by MorphometricFields.
func AllFields() []Field {
	out := make([]Field, 0, len(RecordFields)+len(MorphometricFields))
	out = append(out, RecordFields...)
	return append(out, MorphometricFields...)
}

// IsMorphometric reports whether f names a measurement.
func (f Field) IsMorphometric() bool {
	for _, m := range MorphometricFields {
		if m == f {
			return true
		}
	}
	return false
}

// IsPlantIdentity reports whether f identifies the plant itself. Display-class
// awards may leave these empty without it being a defect.
func (f Field) IsPlantIdentity() bool {
	switch f {
	case FieldGenus, FieldSpecies, FieldClone, FieldCross:
		return true
	}
	return false
}
