package classify

import (
	"sort"

	"github.com/sells-group/awards-cli/internal/model"
)

// Summary aggregates issue reports for a run.
type Summary struct {
	Total      int                    `json:"total"`
	BySeverity map[model.Severity]int `json:"bySeverity"`
	ByField    map[string]int         `json:"byField"`
}

// NewSummary creates an empty summary with every severity bucket present.
func NewSummary() *Summary {
	s := &Summary{
		BySeverity: make(map[model.Severity]int, len(model.Severities)),
		ByField:    make(map[string]int),
	}
	for _, sev := range model.Severities {
		s.BySeverity[sev] = 0
	}
	return s
}

// Add counts one report.
func (s *Summary) Add(r model.IssueReport) {
	s.Total++
	s.BySeverity[r.Severity]++
	for _, f := range r.Missing {
		s.ByField[f]++
	}
}

// Merge folds o into s.
func (s *Summary) Merge(o *Summary) {
	if o == nil {
		return
	}
	s.Total += o.Total
	for k, v := range o.BySeverity {
		s.BySeverity[k] += v
	}
	for k, v := range o.ByField {
		s.ByField[k] += v
	}
}

// FieldCount is one entry of TopFields.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// TopFields returns the n most frequently missing fields, most frequent first.
// n <= 0 returns all of them.
func (s *Summary) TopFields(n int) []FieldCount {
	out := make([]FieldCount, 0, len(s.ByField))
	for f, c := range s.ByField {
		out = append(out, FieldCount{Field: f, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Field < out[j].Field
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
