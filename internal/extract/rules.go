package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/awards-cli/internal/model"
	"github.com/sells-group/awards-cli/internal/segment"
)

// Family groups rules that read the same kind of line. Plant and cross rules
// match unlabelled lines, so they skip any segment another family has already
// bound a field from.
type Family string

const (
	FamilyAwardNum    Family = "award-number"
	FamilyAward       Family = "award-code-points"
	FamilyPlant       Family = "plant-name"
	FamilyCross       Family = "cross"
	FamilyAttribution Family = "attribution"
	FamilyEvent       Family = "date-location"
	FamilyPhoto       Family = "photo"
	FamilyDescription Family = "description"
	FamilyCounts      Family = "counts"
	FamilyMeasurement Family = "measurement"
)

// Rule binds exactly one target field from the first segment its pattern matches.
type Rule struct {
	Name    string
	Family  Family
	Field   model.Field
	Pattern *regexp.Regexp
	Group   int            // submatch bound to Field; -1 binds the first non-empty group
	Kinds   []segment.Kind // segment kinds scanned; empty means all
	Images  bool           // match against document image sources instead of segments
}

func (r Rule) accepts(k segment.Kind) bool {
	if len(r.Kinds) == 0 {
		return true
	}
	for _, want := range r.Kinds {
		if want == k {
			return true
		}
	}
	return false
}

// RuleSet is an ordered rule table for one document era.
type RuleSet struct {
	ID       string
	FromYear int // inclusive; 0 means unbounded
	ToYear   int // inclusive; 0 means unbounded
	Rules    []Rule
}

// Covers reports whether year falls inside the set's range.
func (rs *RuleSet) Covers(year int) bool {
	if rs.FromYear != 0 && year < rs.FromYear {
		return false
	}
	if rs.ToYear != 0 && year > rs.ToYear {
		return false
	}
	return true
}

// Registry holds the known rule sets.
type Registry struct {
	sets []*RuleSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds or replaces a rule set by ID.
func (r *Registry) Register(rs RuleSet) {
	for i, existing := range r.sets {
		if existing.ID == rs.ID {
			r.sets[i] = &rs
			return
		}
	}
	r.sets = append(r.sets, &rs)
}

// ByID returns the rule set with the given identifier.
func (r *Registry) ByID(id string) (*RuleSet, error) {
	for _, rs := range r.sets {
		if rs.ID == id {
			return rs, nil
		}
	}
	return nil, eris.Errorf("extract: unknown rule set %q", id)
}

// ForYear returns the rule set covering year. When several cover it the one
// with the narrowest range wins.
func (r *Registry) ForYear(year int) (*RuleSet, error) {
	var candidates []*RuleSet
	for _, rs := range r.sets {
		if rs.Covers(year) {
			candidates = append(candidates, rs)
		}
	}
	if len(candidates) == 0 {
		return nil, eris.Errorf("extract: no rule set covers year %d", year)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return span(candidates[i]) < span(candidates[j])
	})
	return candidates[0], nil
}

// IDs lists registered rule set identifiers.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.sets))
	for i, rs := range r.sets {
		out[i] = rs.ID
	}
	return out
}

func span(rs *RuleSet) int {
	from, to := rs.FromYear, rs.ToYear
	if from == 0 {
		from = 1900
	}
	if to == 0 {
		to = 9999
	}
	return to - from
}

const (
	monthNames = `(?:January|February|March|April|May|June|July|August|September|October|November|December|Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)`
	datePhrase = monthNames + `\.?\s+\d{1,2},?\s+\d{4}|\d{1,2}/\d{1,2}/\d{4}|\d{4}-\d{2}-\d{2}`
	number     = `(\d+(?:\.\d+)?)`
)

// grexGenera are the genera accepted in front of a capitalised grex name
// without a clone. Other capitalised pairs are venues or people as often as
// plants.
var grexGenera = []string{
	"Aerangis", "Aerides", "Angraecum", "Anguloa", "Ascocentrum", "Bletilla",
	"Brassavola", "Brassia", "Brassolaeliocattleya", "Bulbophyllum", "Calanthe",
	"Catasetum", "Cattleya", "Coelogyne", "Cycnoches", "Cymbidium", "Cypripedium",
	"Dendrobium", "Dendrochilum", "Disa", "Dracula", "Encyclia", "Epidendrum",
	"Gongora", "Guarianthe", "Laelia", "Lycaste", "Masdevallia", "Maxillaria",
	"Miltonia", "Miltoniopsis", "Neofinetia", "Odontoglossum", "Oncidium",
	"Paphiopedilum", "Phalaenopsis", "Phragmipedium", "Pleione", "Pleurothallis",
	"Prosthechea", "Psychopsis", "Renanthera", "Restrepia", "Rhyncholaeliocattleya",
	"Rhynchostylis", "Rossioglossum", "Sarcochilus", "Sobralia", "Sophronitis",
	"Stanhopea", "Tolumnia", "Vanda", "Vandachostylis", "Zygopetalum",
}

// awardCodeAlternation is the closed vocabulary as a regex alternation.
var awardCodeAlternation = strings.Join(model.AwardCodes, "|")

var (
	eventHeadingRe    = regexp.MustCompile(`^(` + datePhrase + `)\s+[-–—]\s+(.+)$`)
	awardPointsRe     = regexp.MustCompile(`\b(` + awardCodeAlternation + `)(?:/AOS)?\s+(\d{1,3})\b`)
	awardOnlyRe       = regexp.MustCompile(`^(?:Award\s*:\s*)?(` + awardCodeAlternation + `)(?:/AOS)?$`)
	awardNumLabelRe   = regexp.MustCompile(`(?i)\baward\s*(?:#|no\.?|num(?:ber)?\.?)?\s*:?\s*(\d{6,9})\b`)
	awardNumLineRe    = regexp.MustCompile(`^(\d{8})$`)
	plantCloneRe      = regexp.MustCompile(`^([A-Z][a-z]{2,})\s+(.+?)\s+['‘’"]([^'‘’"]+)['‘’"](?:\s*\((.+)\))?$`)
	plantBareRe       = regexp.MustCompile(`^([A-Z][a-z]{2,})\s+([a-z][a-z\-]+(?:\s+(?:var|subsp|ssp|fma?)\.?\s+[a-z\-]+)?)(?:\s*\((.+)\))?$`)
	plantGrexRe       = regexp.MustCompile(`^(` + strings.Join(grexGenera, "|") + `)\s+([A-Z][A-Za-z\-]+(?:\s+[A-Z][A-Za-z\-]+){0,3})(?:\s*\((.+)\))?$`)
	crossLineRe       = regexp.MustCompile(`^\((.+)\)$`)
	exhibitorRe       = regexp.MustCompile(`(?i)\bexhibited\s+by\s*:?\s*(.+?)(?:\s+(?:photographer|photographed\s+by|photo\s+by)\b.*)?$`)
	photographerRe    = regexp.MustCompile(`(?i)\bphoto(?:grapher|graphed\s+by|\s+by)\s*:?\s*(.+?)(?:\s+exhibited\s+by\b.*)?$`)
	photoLineRe       = regexp.MustCompile(`(?i)^(?:photo|image)\s*:\s*(\S+)$`)
	imageSourceRe     = regexp.MustCompile(`(?i)(\S+\.(?:jpe?g|png|gif|webp))(?:\?\S*)?$`)
	descriptionRe     = regexp.MustCompile(`(?i)^description\s*:\s*(.+)$`)
	flowersRe         = regexp.MustCompile(`(?i)\b(\d+)\s+flowers?\b|\bflowers?\s*:\s*(\d+)\b`)
	budsRe            = regexp.MustCompile(`(?i)\b(\d+)\s+buds?\b|\bbuds?\s*:\s*(\d+)\b`)
	inflorescencesRe  = regexp.MustCompile(`(?i)\b(\d+)\s+inflorescences?\b|\binflorescences?\s*:\s*(\d+)\b`)
	legacyEventRe     = regexp.MustCompile(`^(.+?),\s+(` + datePhrase + `)$`)
	legacyLocationRe  = regexp.MustCompile(`(?i)^location\s*:\s*(.+)$`)
	legacyDateRe      = regexp.MustCompile(`(?i)^date\s*:\s*(` + datePhrase + `)$`)
	legacyExhibitorRe = regexp.MustCompile(`(?i)^exhibitor\s*:\s*(.+)$`)
)

func measurementRule(f model.Field) Rule {
	return Rule{
		Name:    "measurement-" + strings.ToLower(string(f)),
		Family:  FamilyMeasurement,
		Field:   f,
		Pattern: regexp.MustCompile(`\b` + string(f) + `\b\s*[:=]?\s*` + number),
		Group:   1,
	}
}

// currentRules is the rule table for the "<date> - <location>" era.
func currentRules() []Rule {
	rules := []Rule{
		{Name: "award-number-label", Family: FamilyAwardNum, Field: model.FieldAwardNum, Pattern: awardNumLabelRe, Group: 1},
		{Name: "award-number-line", Family: FamilyAwardNum, Field: model.FieldAwardNum, Pattern: awardNumLineRe, Group: 1},

		{Name: "event-date", Family: FamilyEvent, Field: model.FieldDate, Pattern: eventHeadingRe, Group: 1},
		{Name: "event-location", Family: FamilyEvent, Field: model.FieldLocation, Pattern: eventHeadingRe, Group: 2},

		{Name: "award-code", Family: FamilyAward, Field: model.FieldAward, Pattern: awardPointsRe, Group: 1},
		{Name: "award-points", Family: FamilyAward, Field: model.FieldAwardPoints, Pattern: awardPointsRe, Group: 2},
		{Name: "award-code-unscored", Family: FamilyAward, Field: model.FieldAward, Pattern: awardOnlyRe, Group: 1},

		{Name: "exhibitor", Family: FamilyAttribution, Field: model.FieldExhibitor, Pattern: exhibitorRe, Group: 1},
		{Name: "photographer", Family: FamilyAttribution, Field: model.FieldPhotographer, Pattern: photographerRe, Group: 1},

		{Name: "plant-genus-clone", Family: FamilyPlant, Field: model.FieldGenus, Pattern: plantCloneRe, Group: 1, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-species-clone", Family: FamilyPlant, Field: model.FieldSpecies, Pattern: plantCloneRe, Group: 2, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-clone", Family: FamilyPlant, Field: model.FieldClone, Pattern: plantCloneRe, Group: 3, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-cross-inline", Family: FamilyPlant, Field: model.FieldCross, Pattern: plantCloneRe, Group: 4, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-genus", Family: FamilyPlant, Field: model.FieldGenus, Pattern: plantBareRe, Group: 1, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-species", Family: FamilyPlant, Field: model.FieldSpecies, Pattern: plantBareRe, Group: 2, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-cross-bare", Family: FamilyPlant, Field: model.FieldCross, Pattern: plantBareRe, Group: 3, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-genus-grex", Family: FamilyPlant, Field: model.FieldGenus, Pattern: plantGrexRe, Group: 1, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-species-grex", Family: FamilyPlant, Field: model.FieldSpecies, Pattern: plantGrexRe, Group: 2, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},
		{Name: "plant-cross-grex", Family: FamilyPlant, Field: model.FieldCross, Pattern: plantGrexRe, Group: 3, Kinds: []segment.Kind{segment.KindText, segment.KindHeading}},

		{Name: "cross-line", Family: FamilyCross, Field: model.FieldCross, Pattern: crossLineRe, Group: 1},

		{Name: "photo-image", Family: FamilyPhoto, Field: model.FieldPhoto, Pattern: imageSourceRe, Group: 1, Images: true},
		{Name: "photo-line", Family: FamilyPhoto, Field: model.FieldPhoto, Pattern: photoLineRe, Group: 1},

		{Name: "description", Family: FamilyDescription, Field: model.FieldDescription, Pattern: descriptionRe, Group: 1},

		{Name: "num-flowers", Family: FamilyCounts, Field: model.FieldNumFlowers, Pattern: flowersRe, Group: -1},
		{Name: "num-buds", Family: FamilyCounts, Field: model.FieldNumBuds, Pattern: budsRe, Group: -1},
		{Name: "num-inflorescences", Family: FamilyCounts, Field: model.FieldNumInflorescences, Pattern: inflorescencesRe, Group: -1},
	}
	for _, f := range model.MorphometricFields {
		rules = append(rules, measurementRule(f))
	}
	return rules
}

// legacyRules extends the current table with the labelled-line formats of
// older documents. They come first so they win on their own lines.
func legacyRules() []Rule {
	rules := []Rule{
		{Name: "legacy-event-location", Family: FamilyEvent, Field: model.FieldLocation, Pattern: legacyEventRe, Group: 1},
		{Name: "legacy-event-date", Family: FamilyEvent, Field: model.FieldDate, Pattern: legacyEventRe, Group: 2},
		{Name: "legacy-location", Family: FamilyEvent, Field: model.FieldLocation, Pattern: legacyLocationRe, Group: 1},
		{Name: "legacy-date", Family: FamilyEvent, Field: model.FieldDate, Pattern: legacyDateRe, Group: 1},
		{Name: "legacy-exhibitor", Family: FamilyAttribution, Field: model.FieldExhibitor, Pattern: legacyExhibitorRe, Group: 1},
	}
	return append(rules, currentRules()...)
}

// Rule set identifiers shipped with the package.
const (
	RuleSetCurrent = "current"
	RuleSetLegacy  = "legacy"
)

// DefaultRegistry returns the shipped rule sets: legacy through 2014 and
// current from 2015.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RuleSet{ID: RuleSetLegacy, ToYear: 2014, Rules: legacyRules()})
	r.Register(RuleSet{ID: RuleSetCurrent, FromYear: 2015, Rules: currentRules()})
	return r
}
