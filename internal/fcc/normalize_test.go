package fcc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAffiliation(t *testing.T) {
	cases := map[string]string{
		"NBC":                              "NBC",
		"5.1 FOX, 5.2 SSSEN, 5.3 GetTV":    "FOX",
		"FOX (25.1); Comet TV (25.2)":      "FOX",
		"FOX/COZI-TV":                      "FOX",
		"Telemundo":                        "TELEMUNDO",
		"12.1 CBS 12.2 MYNETWORKTV":        "CBS",
		"Independent":                      "INDEPENDENT",
		"3ABN (Three Angels Broadcasting)": "3ABN",
		"":                                 "",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeAffiliation(input), "input %q", input)
	}
}

func TestInferNetworkFromName(t *testing.T) {
	cases := map[string]string{
		"NBC 13 Missoula":    "NBC",
		"The CW Seattle":     "CW",
		"KTLA 5":             "",
		"Telemundo 51 Miami": "TELEMUNDO",
		"My Network TV":      "MYNETWORK",
	}
	for input, want := range cases {
		assert.Equal(t, want, InferNetworkFromName(input), "input %q", input)
	}
}

func TestStateAbbreviation(t *testing.T) {
	cases := map[string]string{
		"MT":           "MT",
		"MONTANA":      "MT",
		"NEW_YORK":     "NY",
		"new york":     "NY",
		"PUERTO RICO":  "PR",
		"ZZ":           "",
		"NOT_A_STATE":  "",
		"WEST_VIRGINIA": "WV",
	}
	for input, want := range cases {
		assert.Equal(t, want, StateAbbreviation(input), "input %q", input)
	}
}

func TestBaseCallsign(t *testing.T) {
	cases := map[string]string{
		"KECI-TV": "KECI",
		"KECI-DT": "KECI",
		"WNBC":    "WNBC",
		"WPVI-D2": "WPVI",
		"kabc-hd": "KABC",
		"KQED-FM": "KQED",
	}
	for input, want := range cases {
		assert.Equal(t, want, BaseCallsign(input), "input %q", input)
	}
}
