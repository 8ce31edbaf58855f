// Package geo maps ZIP codes to states using USPS prefix allocation.
package geo

import (
	"strconv"
	"strings"
)

// StateLookup resolves a ZIP code to a two-letter state code.
type StateLookup interface {
	StateForZip(zip string) (string, bool)
}

// PrefixRange assigns an inclusive range of three-digit ZIP prefixes to a state.
type PrefixRange struct {
	Low   int
	High  int
	State string
}

// RangeTable is an ordered prefix table; the first matching range wins.
type RangeTable []PrefixRange

// USStates is the USPS allocation of three-digit ZIP prefixes.
var USStates = RangeTable{
	{350, 369, "AL"},
	{995, 999, "AK"},
	{850, 865, "AZ"},
	{716, 729, "AR"},
	{900, 961, "CA"},
	{800, 816, "CO"},
	{60, 69, "CT"},
	{197, 199, "DE"},
	{200, 205, "DC"},
	{320, 349, "FL"},
	{300, 319, "GA"},
	{967, 968, "HI"},
	{832, 838, "ID"},
	{600, 629, "IL"},
	{460, 479, "IN"},
	{500, 528, "IA"},
	{660, 679, "KS"},
	{400, 427, "KY"},
	{700, 714, "LA"},
	{39, 49, "ME"},
	{206, 219, "MD"},
	{10, 27, "MA"},
	{480, 499, "MI"},
	{550, 567, "MN"},
	{386, 397, "MS"},
	{630, 658, "MO"},
	{590, 599, "MT"},
	{680, 693, "NE"},
	{889, 898, "NV"},
	{30, 38, "NH"},
	{70, 89, "NJ"},
	{870, 884, "NM"},
	{100, 149, "NY"},
	{270, 289, "NC"},
	{580, 588, "ND"},
	{430, 458, "OH"},
	{730, 749, "OK"},
	{970, 979, "OR"},
	{150, 196, "PA"},
	{28, 29, "RI"},
	{290, 299, "SC"},
	{570, 577, "SD"},
	{370, 385, "TN"},
	{750, 799, "TX"},
	{840, 847, "UT"},
	{50, 59, "VT"},
	{220, 246, "VA"},
	{980, 994, "WA"},
	{247, 268, "WV"},
	{530, 549, "WI"},
	{820, 831, "WY"},
}

// StateForZip returns the state owning the ZIP's first three digits.
func (t RangeTable) StateForZip(zip string) (string, bool) {
	prefix, ok := Prefix(zip)
	if !ok {
		return "", false
	}
	for _, r := range t {
		if prefix >= r.Low && prefix <= r.High {
			return r.State, true
		}
	}
	return "", false
}

// Prefix parses the leading three digits of a ZIP code.
func Prefix(zip string) (int, bool) {
	zip = strings.TrimSpace(zip)
	if len(zip) < 3 {
		return 0, false
	}
	n, err := strconv.Atoi(zip[:3])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NormalizeZip strips everything but digits and reports whether exactly five remain.
func NormalizeZip(zip string) (string, bool) {
	var b strings.Builder
	for _, r := range zip {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	return digits, len(digits) == 5
}
