package model

// Severity buckets a record's residual data-completeness risk.
type Severity string

const (
	SeverityCritical    Severity = "critical"
	SeverityImportant   Severity = "important"
	SeverityMeasurement Severity = "measurement"
	SeverityNone        Severity = "none"
)

// Severities lists buckets from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityImportant, SeverityMeasurement, SeverityNone}

// Rank orders severities; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityImportant:
		return 2
	case SeverityMeasurement:
		return 1
	}
	return 0
}

// IssueReport is the classifier's structured verdict for one record.
type IssueReport struct {
	Severity    Severity `json:"severity"`
	Missing     []string `json:"missing"`
	Explanation string   `json:"explanation"`
}

// Perfect reports whether the record has no severity-bearing gaps.
func (r IssueReport) Perfect() bool {
	return r.Severity == SeverityNone
}

// ClassifiedRecord pairs a normalized record with its issue report.
type ClassifiedRecord struct {
	Record AwardRecord `json:"record"`
	Issues IssueReport `json:"issues"`
}
