// Package normalize converts human-written dates, times and amounts into the
// canonical forms stored on trips and quotes.
package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	dateLayout = "01/02/2006"
	timeLayout = "15:04"
)

// FormatError reports a date or time value that matches no accepted pattern.
type FormatError struct {
	Field string
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// dateLayouts are tried in order. Two-digit years are handled by Go's
// reference-year rules (69-99 -> 19xx, 00-68 -> 20xx).
var dateLayouts = []string{
	"1/2/2006",
	"1/2/06",
	"1-2-2006",
	"1-2-06",
	"1.2.2006",
	"2006-01-02",
	"2006/01/02",
	"Jan 2 2006",
	"January 2 2006",
	"Mon Jan 2 2006",
	"Monday January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
}

var (
	ordinalRe     = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)
	dateNoiseRe   = regexp.MustCompile(`[,]+`)
	spaceRe       = regexp.MustCompile(`\s+`)
	compactTime   = regexp.MustCompile(`^(\d{1,2})(\d{2})(\s*(?:a\.?m\.?|p\.?m\.?|a|p))?$`)
	clockRe       = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?|a|p)?$`)
	integerRe     = regexp.MustCompile(`\d+`)
	amountRe      = regexp.MustCompile(`(?i)^\$?\s*(\d[\d,]*(?:\.\d+)?)\s*(k|thousand|m|mm|million)?\s*(?:usd|dollars)?$`)
	currencyNoise = strings.NewReplacer("US$", "", "USD", "", "usd", "", "$", "")
)

// Date returns raw in MM/DD/YYYY form.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &FormatError{Field: "date", Value: raw}
	}
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = dateNoiseRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return t.Format(dateLayout), nil
	}
	return "", &FormatError{Field: "date", Value: raw}
}

// Time returns raw as a zero-padded 24-hour HH:MM. An empty value means the
// time is unknown and yields an empty result without error.
func Time(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", nil
	}
	// "0930" needs all four digits; "930am" is unambiguous with a meridiem.
	if m := compactTime.FindStringSubmatch(s); m != nil && (len(m[1]) == 2 || m[3] != "") {
		s = m[1] + ":" + m[2] + m[3]
	}

	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return "", &FormatError{Field: "time", Value: raw}
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := strings.ReplaceAll(m[3], ".", "")

	switch {
	case meridiem == "":
		if m[2] == "" {
			// A bare number like "9" is ambiguous.
			return "", &FormatError{Field: "time", Value: raw}
		}
	case hour < 1 || hour > 12:
		return "", &FormatError{Field: "time", Value: raw}
	case strings.HasPrefix(meridiem, "a"):
		if hour == 12 {
			hour = 0
		}
	default:
		if hour != 12 {
			hour += 12
		}
	}

	if hour > 23 || minute > 59 {
		return "", &FormatError{Field: "time", Value: raw}
	}
	return time.Date(0, 1, 1, hour, minute, 0, 0, time.UTC).Format(timeLayout), nil
}

// Amount normalises a money value to a plain decimal string: separators are
// dropped and k/thousand/m/million suffixes expanded. Values that are not a
// single amount (ranges, "TBD") yield "".
func Amount(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	m := amountRe.FindStringSubmatch(s)
	if m == nil {
		m = amountRe.FindStringSubmatch(strings.TrimSpace(currencyNoise.Replace(s)))
		if m == nil {
			return ""
		}
	}
	return ScaleAmount(m[1], m[2])
}

// ScaleAmount parses digits (commas allowed) and applies a k/thousand or
// m/million suffix.
func ScaleAmount(digits, suffix string) string {
	d, err := decimal.NewFromString(strings.ReplaceAll(digits, ",", ""))
	if err != nil {
		return ""
	}
	switch strings.ToLower(suffix) {
	case "k", "thousand":
		d = d.Mul(decimal.NewFromInt(1000))
	case "m", "mm", "million":
		d = d.Mul(decimal.NewFromInt(1_000_000))
	}
	return d.String()
}

// Count returns the first integer in raw, or "" when there is none.
func Count(raw string) string {
	n := integerRe.FindString(raw)
	if n == "" {
		return ""
	}
	v, err := strconv.Atoi(n)
	if err != nil {
		return ""
	}
	return strconv.Itoa(v)
}
