package normalize

import (
	"strings"

	"github.com/sells-group/awards-cli/internal/model"
)

var awardNames = map[string]string{
	"award of merit":                       "AM",
	"highly commended certificate":         "HCC",
	"first class certificate":              "FCC",
	"certificate of cultural merit":        "CCM",
	"certificate of cultural excellence":   "CCE",
	"judges' commendation":                 "JC",
	"judges commendation":                  "JC",
	"certificate of horticultural merit":   "CHM",
	"certificate of botanical recognition": "CBR",
	"award of quality":                     "AQ",
	"award of distinction":                 "AD",
}

// AwardCode returns the vocabulary code for s. Codes are upper-cased and
// stripped of an "/AOS" suffix; spelled-out names map to their code. Unknown
// values are returned trimmed.
func AwardCode(s string) string {
	s = collapse(s)
	upper := strings.TrimSuffix(strings.ToUpper(s), "/AOS")
	if model.IsAwardCode(upper) {
		return upper
	}
	if code, ok := awardNames[strings.ToLower(s)]; ok {
		return code
	}
	return s
}
