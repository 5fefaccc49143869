package normalize

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate(t *testing.T) {
	cases := map[string]string{
		"6/20/2025":            "06/20/2025",
		"06/20/2025":           "06/20/2025",
		"6/20/25":              "06/20/2025",
		"6-20-2025":            "06/20/2025",
		"2025-06-20":           "06/20/2025",
		"Jun 20, 2025":         "06/20/2025",
		"June 20th, 2025":      "06/20/2025",
		"Friday, June 20 2025": "06/20/2025",
		"20 June 2025":         "06/20/2025",
		"  12/1/2024 ":         "12/01/2024",
	}
	for in, want := range cases {
		got, err := Date(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestDateIdempotent(t *testing.T) {
	for _, in := range []string{"6/20/2025", "Jan 2, 2026", "2024-02-29", "3/4/99"} {
		once, err := Date(in)
		require.NoError(t, err, in)
		twice, err := Date(once)
		require.NoError(t, err, once)
		assert.Equal(t, once, twice)
	}
}

func TestDateRejects(t *testing.T) {
	for _, in := range []string{"13/40/2025", "2/30/2025", "", "next tuesday", "2025"} {
		_, err := Date(in)
		var fe *FormatError
		require.Error(t, err, in)
		assert.True(t, errors.As(err, &fe), "expected FormatError for %q", in)
		assert.Equal(t, "date", fe.Field)
	}
}

func TestTime(t *testing.T) {
	cases := map[string]string{
		"":           "",
		"15:30":      "15:30",
		"9:05":       "09:05",
		"3pm":        "15:00",
		"3:30 PM":    "15:30",
		"12am":       "00:00",
		"12:15 p.m.": "12:15",
		"0930":       "09:30",
		"7 am":       "07:00",
		"930am":      "09:30",
		"1130pm":     "23:30",
		"1245 p.m.":  "12:45",
	}
	for in, want := range cases {
		got, err := Time(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestTimeRejects(t *testing.T) {
	for _, in := range []string{"25:00", "13pm", "9", "noon-ish", "10:75", "930", "1375pm"} {
		_, err := Time(in)
		var fe *FormatError
		require.Error(t, err, in)
		assert.True(t, errors.As(err, &fe), in)
	}
}

func TestAmount(t *testing.T) {
	cases := map[string]string{
		"70k":         "70000",
		"70K":         "70000",
		"$45,000":     "45000",
		"45000 USD":   "45000",
		"US$ 12,500":  "12500",
		"1.5k":        "1500",
		"1.2m":        "1200000",
		"30 thousand": "30000",
		"TBD":         "",
		"":            "",
		"40-50k":      "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Amount(in), in)
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, "5", Count("5 pax"))
	assert.Equal(t, "12", Count("012"))
	assert.Equal(t, "", Count("a few"))
}
