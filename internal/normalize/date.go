package normalize

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the canonical spelling of award dates.
const DateLayout = "January 2, 2006"

var dateLayouts = []string{
	DateLayout,
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
	"2006-01-02",
	"2006/01/02",
}

var monthAbbrevRe = regexp.MustCompile(`\b(Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)\.`)

// ParseDate parses s under any known layout.
func ParseDate(s string) (time.Time, bool) {
	s = collapse(s)
	s = monthAbbrevRe.ReplaceAllString(s, "$1")
	s = strings.Replace(s, "Sept ", "Sep ", 1)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date returns s in canonical spelling, or s trimmed when no layout parses it.
func Date(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format(DateLayout)
	}
	return collapse(s)
}
