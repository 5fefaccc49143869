// Package fallback extracts trip fields from raw text with fixed patterns. It
// is used when the model response for a trip request cannot be used, and it
// never fails.
package fallback

import (
	"regexp"
	"strings"

	"github.com/intelligrit/wingstack/internal/model"
	"github.com/intelligrit/wingstack/internal/normalize"
)

var (
	// LegPattern matches an origin/destination code pair followed on the same
	// line by a numeric date, e.g. "KTEB-KOAK on 6/20/2025" or "TEB to VNY 6/20/25".
	LegPattern = regexp.MustCompile(`\b([A-Z]{3,4})(?:\s*(?:-|–|—|/|>|→)\s*|\s+(?:to|TO)\s+|\s+)([A-Z]{3,4})\b[^\n]{0,40}?\b(\d{1,2}/\d{1,2}/(?:\d{4}|\d{2}))\b`)

	// PaxPattern matches a passenger count such as "5 pax" or "6 Passengers".
	PaxPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(?:pax|passengers?|adults?)\b`)

	// Amounts with an explicit money signal.
	DollarPattern = regexp.MustCompile(`(?i)\$\s?(\d[\d,]*(?:\.\d+)?)(?:\s*(k|thousand|m|million)\b)?`)
	SuffixPattern = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)\s*(k|thousand)\b`)
	USDPattern    = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)\s*(?:usd)\b`)

	// BudgetPattern matches a bare number introduced by the word "budget". It
	// is only consulted when no signalled amount is present.
	BudgetPattern = regexp.MustCompile(`(?i)\bbudget\b[^\d\n]{0,20}?(\d[\d,]*(?:\.\d+)?)(?:\s*(k|thousand|m|million)\b)?`)

	// countFollower marks a bare number as a count or a date rather than money.
	countFollower = regexp.MustCompile(`(?i)^(?:\s*(?:pax|passengers?|adults?|legs?|people|persons?|seats?)\b|/)`)

	// pairPattern finds adjacent code pairs inside a LegPattern match.
	pairPattern = regexp.MustCompile(`\b([A-Z]{3,4})(?:\s*(?:-|–|—|/|>|→)\s*|\s+(?:to|TO)\s+|\s+)([A-Z]{3,4})\b`)
)

// notCodes are uppercase words that look like airport codes in request text
// but never are.
var notCodes = map[string]bool{
	"PAX": true, "USD": true, "THE": true, "AND": true, "FOR": true,
	"TBD": true, "ASAP": true, "ETA": true, "ETD": true, "FROM": true,
	"WITH": true, "JET": true, "MID": true, "RT": true, "OW": true,
	"BOOK": true, "NEED": true, "PLS": true, "FLY": true, "TRIP": true,
	"WANT": true, "LEG": true, "LEGS": true, "ONE": true, "WAY": true,
	"MON": true, "TUE": true, "WED": true, "THU": true, "FRI": true,
	"SAT": true, "SUN": true, "JAN": true, "FEB": true, "MAR": true,
	"APR": true, "MAY": true, "JUN": true, "JUNE": true, "JUL": true,
	"JULY": true, "AUG": true, "SEP": true, "SEPT": true, "OCT": true,
	"NOV": true, "DEC": true,
}

// Extract returns a best-effort ParsedTripRequest for text. Fields that are
// not found are empty strings and Legs is never nil.
func Extract(text string) model.ParsedTripRequest {
	return model.ParsedTripRequest{
		Legs:           ExtractLegs(text),
		PassengerCount: ExtractPassengerCount(text),
		Budget:         ExtractBudget(text),
	}
}

// ExtractLegs returns every code-pair-plus-date leg in source order.
func ExtractLegs(text string) []model.TripLeg {
	legs := []model.TripLeg{}
	pos := 0
	for pos < len(text) {
		loc := LegPattern.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			break
		}
		from, to, ok := lastPair(text[pos+loc[0] : pos+loc[6]])
		if !ok {
			// Retry from the second token so a real pair behind a false
			// positive is still found.
			pos += loc[3]
			continue
		}

		date, err := normalize.Date(text[pos+loc[6] : pos+loc[7]])
		if err != nil {
			date = ""
		}
		legs = append(legs, model.TripLeg{From: from, To: to, Date: date})
		pos += loc[1]
	}
	return legs
}

// lastPair returns the code pair nearest the end of segment, skipping words
// in notCodes. Pairs may overlap: "BOOK TEB VNY" yields TEB, VNY.
func lastPair(segment string) (from, to string, ok bool) {
	for p := 0; p < len(segment); {
		loc := pairPattern.FindStringSubmatchIndex(segment[p:])
		if loc == nil {
			break
		}
		a, b := segment[p+loc[2]:p+loc[3]], segment[p+loc[4]:p+loc[5]]
		if !notCodes[a] && !notCodes[b] {
			from, to, ok = a, b, true
		}
		p += loc[3]
	}
	return from, to, ok
}

// ExtractPassengerCount returns the first "N pax"-style count, or "".
func ExtractPassengerCount(text string) string {
	m := PaxPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return normalize.Count(m[1])
}

// ExtractBudget returns the first money amount in text as a decimal string,
// or "". Amounts with a currency sign or shorthand suffix win over a bare
// number after "budget".
func ExtractBudget(text string) string {
	best := -1
	var digits, suffix string
	for _, re := range []*regexp.Regexp{DollarPattern, SuffixPattern, USDPattern} {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil || (best >= 0 && loc[0] >= best) {
			continue
		}
		best = loc[0]
		digits = text[loc[2]:loc[3]]
		suffix = ""
		if len(loc) > 4 && loc[4] >= 0 {
			suffix = text[loc[4]:loc[5]]
		}
	}

	if best < 0 {
		loc := BudgetPattern.FindStringSubmatchIndex(text)
		if loc == nil {
			return ""
		}
		if countFollower.MatchString(text[loc[3]:]) || overlapsPax(text, loc[2], loc[3]) {
			return ""
		}
		digits = text[loc[2]:loc[3]]
		if loc[4] >= 0 {
			suffix = text[loc[4]:loc[5]]
		}
	}
	return normalize.ScaleAmount(strings.TrimRight(digits, ","), suffix)
}

func overlapsPax(text string, start, end int) bool {
	for _, loc := range PaxPattern.FindAllStringIndex(text, -1) {
		if start < loc[1] && loc[0] < end {
			return true
		}
	}
	return false
}
