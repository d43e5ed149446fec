// Package extract applies ordered, era-specific rule tables to segmented award
// documents and produces raw field bindings.
package extract

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/segment"
)

// DocumentMeta carries provenance for one detail document.
type DocumentMeta struct {
	Year          int
	SourceURL     string
	ScrapedDate   time.Time
	HTMLReference string
}

// Extractor binds raw fields from segmented documents.
type Extractor struct {
	registry *Registry
	override string
}

// New creates an Extractor. A non-empty override forces one rule set for every
// year instead of selecting by era.
func New(registry *Registry, override string) *Extractor {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Extractor{registry: registry, override: override}
}

// RuleSetFor returns the rule set used for documents of year.
func (e *Extractor) RuleSetFor(year int) (*RuleSet, error) {
	if e.override != "" {
		return e.registry.ByID(e.override)
	}
	return e.registry.ForYear(year)
}

var (
	awardNumIDRe = regexp.MustCompile(`^\d{6,9}$`)

	// Layout images that are never the award photograph.
	decorativeImage = []string{"logo", "icon", "spacer", "banner", "button"}
)

// Extract applies the year's rule set to doc. Rules run in table order and the
// first match per field wins. Unmatched fields are listed in Gaps; gaps are
// data, not errors. The only error is an unresolvable rule set.
func (e *Extractor) Extract(doc *segment.Document, meta DocumentMeta) (model.RawRecord, error) {
	rs, err := e.RuleSetFor(meta.Year)
	if err != nil {
		return model.RawRecord{}, err
	}

	rec := model.RawRecord{
		DocumentID:    doc.ID,
		Year:          meta.Year,
		SourceURL:     meta.SourceURL,
		HTMLReference: meta.HTMLReference,
		ScrapedDate:   meta.ScrapedDate,
		RuleSet:       rs.ID,
		Fields:        make(map[model.Field]string),
	}

	claimed := make(map[int]Family)
	for _, rule := range rs.Rules {
		if _, bound := rec.Fields[rule.Field]; bound {
			continue
		}
		if rule.Images {
			if v, ok := matchImages(rule, doc.Images); ok {
				rec.Fields[rule.Field] = v
			}
			continue
		}
		for i, seg := range doc.Segments {
			if !rule.accepts(seg.Kind) {
				continue
			}
			if owner, ok := claimed[i]; ok && owner != rule.Family && unlabelled(rule.Family) {
				continue
			}
			v, ok := capture(rule, seg.Text)
			if !ok {
				continue
			}
			rec.Fields[rule.Field] = v
			if _, ok := claimed[i]; !ok {
				claimed[i] = rule.Family
			}
			break
		}
	}

	if _, ok := rec.Fields[model.FieldAwardNum]; !ok && awardNumIDRe.MatchString(doc.ID) {
		rec.Fields[model.FieldAwardNum] = doc.ID
	}

	rec.RecomputeGaps()
	if len(rec.Gaps) > 0 {
		zap.L().Debug("extract: unmatched fields",
			zap.String("document", doc.ID),
			zap.String("rule_set", rs.ID),
			zap.Int("gaps", len(rec.Gaps)),
		)
	}
	return rec, nil
}

// Gaps returns the extraction gaps of rec as data-quality signals.
func Gaps(rec model.RawRecord) []*model.ExtractionGap {
	out := make([]*model.ExtractionGap, len(rec.Gaps))
	for i, f := range rec.Gaps {
		out[i] = &model.ExtractionGap{DocumentID: rec.DocumentID, Field: f}
	}
	return out
}

func unlabelled(f Family) bool {
	return f == FamilyPlant || f == FamilyCross
}

func capture(rule Rule, text string) (string, bool) {
	m := rule.Pattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	if rule.Group < 0 {
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				return g, true
			}
		}
		return "", false
	}
	if rule.Group >= len(m) {
		return "", false
	}
	v := strings.TrimSpace(m[rule.Group])
	return v, v != ""
}

func matchImages(rule Rule, images []string) (string, bool) {
	for _, src := range images {
		if isDecorative(src) {
			continue
		}
		if v, ok := capture(rule, src); ok {
			return v, true
		}
	}
	return "", false
}

func isDecorative(src string) bool {
	lower := strings.ToLower(src)
	for _, d := range decorativeImage {
		if strings.Contains(lower, d) {
			return true
		}
	}
	return false
}
