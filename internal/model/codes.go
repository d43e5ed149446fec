package model

import "strings"

// AwardCodes is the closed vocabulary of award classification codes, longest
// first so regex alternations built from it never stop at a shorter prefix.
var AwardCodes = []string{
	"HCC", "FCC", "CCM", "CCE", "CHM", "CBR",
	"AM", "JC", "AQ", "AD", "ST", "GM", "SM", "BM",
}

// displayAwardCodes are display/quality classes. They are not scored on
// flower measurements and may omit plant-identity fields.
var displayAwardCodes = map[string]bool{
	"AQ": true,
	"AD": true,
	"ST": true,
	"GM": true,
	"SM": true,
	"BM": true,
}

// IsAwardCode reports whether code is in the closed vocabulary.
func IsAwardCode(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range AwardCodes {
		if c == code {
			return true
		}
	}
	return false
}

// IsDisplayAwardCode reports whether code is a display/quality class.
func IsDisplayAwardCode(code string) bool {
	return displayAwardCodes[strings.ToUpper(strings.TrimSpace(code))]
}
