package model

import (
	"sort"
	"time"
)

// RawRecord is the Extractor's output for one detail document: every field is
// either bound in Fields or listed in Gaps.
type RawRecord struct {
	DocumentID    string           `json:"documentId"`
	Year          int              `json:"year"`
	SourceURL     string           `json:"sourceUrl,omitempty"`
	HTMLReference string           `json:"htmlReference"`
	ScrapedDate   time.Time        `json:"scrapedDate"`
	RuleSet       string           `json:"ruleSet"`
	Fields        map[Field]string `json:"fields"`
	Gaps          []Field          `json:"gaps,omitempty"`
}

// Get returns the bound value of f and whether it was bound.
func (r *RawRecord) Get(f Field) (string, bool) {
	v, ok := r.Fields[f]
	return v, ok
}

// Set binds f, removing it from Gaps.
func (r *RawRecord) Set(f Field, v string) {
	if r.Fields == nil {
		r.Fields = make(map[Field]string)
	}
	r.Fields[f] = v
	for i, g := range r.Gaps {
		if g == f {
			r.Gaps = append(r.Gaps[:i:i], r.Gaps[i+1:]...)
			break
		}
	}
}

// RecomputeGaps lists every known field not bound in Fields, in canonical order.
func (r *RawRecord) RecomputeGaps() {
	r.Gaps = r.Gaps[:0]
	for _, f := range AllFields() {
		if _, ok := r.Fields[f]; !ok {
			r.Gaps = append(r.Gaps, f)
		}
	}
}

// Clone returns a deep copy.
func (r RawRecord) Clone() RawRecord {
	out := r
	out.Fields = make(map[Field]string, len(r.Fields))
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	out.Gaps = append([]Field(nil), r.Gaps...)
	return out
}

// IndexRecord is one entry of an index listing page. It carries the listing's
// event heading (date, location) and whatever per-entry fields the listing shows.
type IndexRecord struct {
	AwardNum string           `json:"awardNum"`
	SourceID string           `json:"sourceId"`
	Fields   map[Field]string `json:"fields"`
}

// Get returns the listed value of f and whether the listing carried it.
func (r IndexRecord) Get(f Field) (string, bool) {
	v, ok := r.Fields[f]
	return v, ok
}

// BoundFields returns the fields carried by the entry, sorted.
func (r IndexRecord) BoundFields() []Field {
	out := make([]Field, 0, len(r.Fields))
	for f := range r.Fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
