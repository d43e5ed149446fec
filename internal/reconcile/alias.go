package reconcile

import (
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// defaultAliases maps canonical event locations to spellings known to denote
// the same venue.
var defaultAliases = map[string][]string{
	"Filoli Historic House": {
		"Filoli Historic House Monthly",
		"Filoli",
		"Filoli Monthly",
	},
	"San Francisco": {
		"San Francisco Monthly",
		"SF Monthly",
		"San Francisco Monthly Judging",
	},
	"Pacific Orchid Exposition": {
		"POE",
		"Pacific Orchid Expo",
		"San Francisco Pacific Orchid Exposition",
	},
	"Santa Barbara International Orchid Show": {
		"SBIOS",
		"Santa Barbara Orchid Show",
		"Santa Barbara International",
	},
	"Santa Barbara": {
		"Santa Barbara Monthly",
	},
}

var foldSpaceRe = regexp.MustCompile(`\s+`)

// fold lower-cases s with Unicode case folding and collapses whitespace.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(foldSpaceRe.ReplaceAllString(s, " ")))
}

// AliasTable resolves synonymous location spellings to one canonical form.
type AliasTable struct {
	canonical map[string]string // folded spelling -> canonical form
}

// NewAliasTable creates a table from canonical -> aliases groups.
func NewAliasTable(groups map[string][]string) *AliasTable {
	t := &AliasTable{canonical: make(map[string]string)}
	// Sorted so a spelling listed under two canonicals resolves deterministically.
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Add(k, groups[k]...)
	}
	return t
}

// DefaultAliasTable returns the table of known venue synonyms.
func DefaultAliasTable() *AliasTable {
	return NewAliasTable(defaultAliases)
}

// LoadAliasTable returns the default table extended with the groups in the
// YAML file at path, a mapping of canonical form to a list of aliases. An
// empty path yields the defaults.
func LoadAliasTable(path string) (*AliasTable, error) {
	t := DefaultAliasTable()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: read alias file %s", path)
	}
	var groups map[string][]string
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, eris.Wrapf(err, "reconcile: parse alias file %s", path)
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.Add(k, groups[k]...)
	}
	return t, nil
}

// Add registers aliases of canonical. The canonical form maps to itself.
func (t *AliasTable) Add(canonical string, aliases ...string) {
	canonical = strings.TrimSpace(foldSpaceRe.ReplaceAllString(canonical, " "))
	if canonical == "" {
		return
	}
	t.canonical[fold(canonical)] = canonical
	for _, a := range aliases {
		if k := fold(a); k != "" {
			t.canonical[k] = canonical
		}
	}
}

// Canonical returns the canonical form of s, or s unchanged when it is not in
// the table.
func (t *AliasTable) Canonical(s string) string {
	if c, ok := t.canonical[fold(s)]; ok {
		return c
	}
	return s
}

// Equivalent reports whether a and b denote the same location, directly or
// through the table.
func (t *AliasTable) Equivalent(a, b string) bool {
	fa, fb := fold(a), fold(b)
	if fa == fb {
		return true
	}
	ca, okA := t.canonical[fa]
	cb, okB := t.canonical[fb]
	return okA && okB && ca == cb
}

// Len returns the number of known spellings.
func (t *AliasTable) Len() int {
	return len(t.canonical)
}
