package fallback

import (
	"testing"

	"github.com/intelligrit/wingstack/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLegsInSourceOrder(t *testing.T) {
	got := Extract("KTEB-KOAK on 6/20/2025, then KOAK-KSJC on 6/21/2025")

	require.Len(t, got.Legs, 2)
	assert.Equal(t, model.TripLeg{From: "KTEB", To: "KOAK", Date: "06/20/2025"}, got.Legs[0])
	assert.Equal(t, model.TripLeg{From: "KOAK", To: "KSJC", Date: "06/21/2025"}, got.Legs[1])
	for _, leg := range got.Legs {
		assert.Empty(t, leg.Time)
	}
}

func TestExtractLegsSeparators(t *testing.T) {
	text := "Outbound TEB to VNY 7/4/25\nReturn VNY TEB departing 07/09/2025"
	legs := ExtractLegs(text)

	require.Len(t, legs, 2)
	assert.Equal(t, "TEB", legs[0].From)
	assert.Equal(t, "VNY", legs[0].To)
	assert.Equal(t, "07/04/2025", legs[0].Date)
	assert.Equal(t, "VNY", legs[1].From)
	assert.Equal(t, "07/09/2025", legs[1].Date)
}

func TestExtractLegsSkipsNonCodes(t *testing.T) {
	legs := ExtractLegs("PAX JFK LAX 8/1/2025")

	require.Len(t, legs, 1)
	assert.Equal(t, "JFK", legs[0].From)
	assert.Equal(t, "LAX", legs[0].To)
}

func TestExtractLegsPrefersPairNearestDate(t *testing.T) {
	got := Extract("PLEASE BOOK TEB VNY 6/20/2025")

	require.Len(t, got.Legs, 1)
	assert.Equal(t, model.TripLeg{From: "TEB", To: "VNY", Date: "06/20/2025"}, got.Legs[0])

	legs := ExtractLegs("NEED JET TEB-PBI FRI 7/11/2025")
	require.Len(t, legs, 1)
	assert.Equal(t, "TEB", legs[0].From)
	assert.Equal(t, "PBI", legs[0].To)
}

func TestExtractBudgetIgnoresCounts(t *testing.T) {
	got := Extract("Budget TBD for 5 pax")
	assert.Equal(t, "5", got.PassengerCount)
	assert.Empty(t, got.Budget)
}

func TestExtractLegsNeedsDateOnSameLine(t *testing.T) {
	legs := ExtractLegs("TEB VNY\n6/20/2025")
	assert.Empty(t, legs)
	assert.NotNil(t, legs)
}

func TestExtractBudget(t *testing.T) {
	cases := map[string]string{
		"budget 70k":                          "70000",
		"$45,000 budget":                      "45000",
		"no money mentioned":                  "",
		"Budget: 25000":                       "25000",
		"looking to spend around 80 thousand": "80000",
		"max 60000 USD all in":                "60000",
		"budget for 5 pax is $32k":            "32000",
		"flying 6/20/2025 with 4 pax":         "",
		"Budget TBD for 5 pax":                "",
		"Budget: open. 3 legs":                "",
		"budget to be confirmed 6/20":         "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ExtractBudget(in), in)
	}
}

func TestExtractPassengerCount(t *testing.T) {
	assert.Equal(t, "5", Extract("traveling with 5 pax").PassengerCount)
	assert.Equal(t, "8", Extract("8 Passengers plus a dog").PassengerCount)
	assert.Equal(t, "2", Extract("2 adults, 1 child").PassengerCount)
	assert.Equal(t, "", Extract("just me and my bags").PassengerCount)
}

func TestExtractIsTotal(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"\x00\xff\xfe garbage",
		"{\"legs\": null}",
		"ZZZ-YYY on 99/99/9999",
	}
	for _, in := range inputs {
		got := Extract(in)
		assert.NotNil(t, got.Legs, "%q", in)
	}

	got := Extract("ZZZ-YYY on 19/45/2025")
	require.Len(t, got.Legs, 1)
	assert.Empty(t, got.Legs[0].Date)
}
