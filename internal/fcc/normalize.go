// Package fcc imports the FCC LMS facility dataset and resolves broadcast
// callsigns from channel names, numbers, and locations.
package fcc

import (
	"regexp"
	"strings"
)

// majorNetworks are checked in order during affiliation normalization.
// More specific names come before shorter ones so "MYNETWORKTV" is not
// swallowed by "TV".
var majorNetworks = []string{
	"TELEMUNDO", "UNIVISION", "UNIMAS", "MYNETWORKTV", "MYNETWORK",
	"ABC", "NBC", "CBS", "FOX", "PBS", "ION", "CW",
	"METV", "GRIT", "COZI", "BOUNCE", "COMET", "LAFF", "AZTECA",
	"INDEPENDENT",
}

// affiliationRes matches one network inside a raw affiliation string,
// tolerating a leading "5.1"-style subchannel number.
var affiliationRes = buildAffiliationRes()

func buildAffiliationRes() map[string]*regexp.Regexp {
	res := make(map[string]*regexp.Regexp, len(majorNetworks))
	for _, net := range majorNetworks {
		res[net] = regexp.MustCompile(`(?i)(?:^|\b)(?:\d+(?:\.\d+)?\s+)?(` + regexp.QuoteMeta(net) + `)\b`)
	}
	return res
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	affiliationSep  = regexp.MustCompile(`[/;,&]`)
	leadingNumberRe = regexp.MustCompile(`^\d+(\.\d+)?\s+`)
)

// NormalizeAffiliation extracts the primary network from a raw FCC
// affiliation string. Raw values look like "5.1 FOX, 5.2 SSSEN",
// "FOX (25.1); Comet TV (25.2)" or "FOX/COZI-TV".
func NormalizeAffiliation(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	for _, net := range majorNetworks {
		if affiliationRes[net].MatchString(raw) {
			return net
		}
	}

	// No known network: take the first component and tidy it up.
	cleaned := parentheticalRe.ReplaceAllString(raw, "")
	parts := affiliationSep.Split(cleaned, 2)
	first := strings.TrimSpace(parts[0])
	first = leadingNumberRe.ReplaceAllString(first, "")
	return strings.ToUpper(strings.TrimSpace(first))
}

// nameInferenceRes recognize a network from a channel display name. Used
// when the FCC affiliation is "Independent" or empty but the playlist
// name says otherwise.
var nameInferenceRes = []struct {
	network string
	re      *regexp.Regexp
}{
	{"CW", regexp.MustCompile(`(?i)\b(?:THE\s+)?CW\b`)},
	{"ABC", regexp.MustCompile(`(?i)\bABC\b`)},
	{"NBC", regexp.MustCompile(`(?i)\bNBC\b`)},
	{"CBS", regexp.MustCompile(`(?i)\bCBS\b`)},
	{"FOX", regexp.MustCompile(`(?i)\bFOX\b`)},
	{"PBS", regexp.MustCompile(`(?i)\bPBS\b`)},
	{"ION", regexp.MustCompile(`(?i)\bION\b`)},
	{"MYNETWORK", regexp.MustCompile(`(?i)\bMY\s?NETWORK(?:\s?TV)?\b`)},
	{"UNIVISION", regexp.MustCompile(`(?i)\bUNIVISION\b`)},
	{"TELEMUNDO", regexp.MustCompile(`(?i)\bTELEMUNDO\b`)},
}

// InferNetworkFromName returns the network implied by a channel name, or
// an empty string.
func InferNetworkFromName(name string) string {
	for _, entry := range nameInferenceRes {
		if entry.re.MatchString(name) {
			return entry.network
		}
	}
	return ""
}

// stateAbbrevs maps full US state names (plus DC and territories) to
// their two-letter abbreviations. Keys are uppercase with spaces.
var stateAbbrevs = map[string]string{
	"ALABAMA": "AL", "ALASKA": "AK", "ARIZONA": "AZ", "ARKANSAS": "AR",
	"CALIFORNIA": "CA", "COLORADO": "CO", "CONNECTICUT": "CT",
	"DELAWARE": "DE", "FLORIDA": "FL", "GEORGIA": "GA", "HAWAII": "HI",
	"IDAHO": "ID", "ILLINOIS": "IL", "INDIANA": "IN", "IOWA": "IA",
	"KANSAS": "KS", "KENTUCKY": "KY", "LOUISIANA": "LA", "MAINE": "ME",
	"MARYLAND": "MD", "MASSACHUSETTS": "MA", "MICHIGAN": "MI",
	"MINNESOTA": "MN", "MISSISSIPPI": "MS", "MISSOURI": "MO",
	"MONTANA": "MT", "NEBRASKA": "NE", "NEVADA": "NV",
	"NEW HAMPSHIRE": "NH", "NEW JERSEY": "NJ", "NEW MEXICO": "NM",
	"NEW YORK": "NY", "NORTH CAROLINA": "NC", "NORTH DAKOTA": "ND",
	"OHIO": "OH", "OKLAHOMA": "OK", "OREGON": "OR", "PENNSYLVANIA": "PA",
	"RHODE ISLAND": "RI", "SOUTH CAROLINA": "SC", "SOUTH DAKOTA": "SD",
	"TENNESSEE": "TN", "TEXAS": "TX", "UTAH": "UT", "VERMONT": "VT",
	"VIRGINIA": "VA", "WASHINGTON": "WA", "WEST VIRGINIA": "WV",
	"WISCONSIN": "WI", "WYOMING": "WY",
	"DISTRICT OF COLUMBIA": "DC", "PUERTO RICO": "PR",
	"VIRGIN ISLANDS": "VI", "GUAM": "GU",
}

var twoLetterStateRe = regexp.MustCompile(`^[A-Z]{2}$`)

var validAbbrevs = func() map[string]bool {
	set := make(map[string]bool, len(stateAbbrevs))
	for _, abbrev := range stateAbbrevs {
		set[abbrev] = true
	}
	return set
}()

// StateAbbreviation resolves a state reference to its two-letter
// abbreviation. Accepts an abbreviation directly, or a full name with
// underscores standing in for spaces. Returns "" when unrecognized.
func StateAbbreviation(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if twoLetterStateRe.MatchString(s) {
		if validAbbrevs[s] {
			return s
		}
		return ""
	}
	s = strings.ReplaceAll(s, "_", " ")
	return stateAbbrevs[s]
}

// baseCallsignRe strips broadcast service suffixes from a callsign.
var baseCallsignRe = regexp.MustCompile(`-(TV|DT|HD|FM|AM|LP|CA|CD|LD|D\d?)$`)

// BaseCallsign returns the callsign with its service suffix removed:
// "KECI-TV" and "KECI-DT" both become "KECI".
func BaseCallsign(callsign string) string {
	return baseCallsignRe.ReplaceAllString(strings.ToUpper(callsign), "")
}
