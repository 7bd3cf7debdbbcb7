package fcc

import (
	"strings"
	"testing"

	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// facilityLine builds one facility.dat record with the given fields set.
func facilityLine(city, state, callsign, service, status, facilityID, network, dma, virtualChannel string) string {
	fields := make([]string, minFields)
	fields[fieldCommCity] = city
	fields[fieldCommState] = state
	fields[fieldCallsign] = callsign
	fields[fieldService] = service
	fields[fieldStatus] = status
	fields[fieldFacilityID] = facilityID
	fields[fieldNetworkAfil] = network
	fields[fieldNielsenDma] = dma
	fields[fieldTvVirtualChannel] = virtualChannel
	return strings.Join(fields, "|") + recordTerminator
}

func TestParseFacilities(t *testing.T) {
	input := strings.Join([]string{
		facilityLine("MISSOULA", "MT", "KECI-TV", "DTV", "LICEN", "1001", "NBC", "Missoula", "13"),
		facilityLine("MIAMI", "FL", "WSCV", "DTV", "LICEN", "1002", "Telemundo", "Miami-Ft. Lauderdale", "51"),
		// Radio service, dropped.
		facilityLine("DENVER", "CO", "KOA", "AM", "LICEN", "1003", "", "Denver", ""),
		// Cancelled license, kept but inactive.
		facilityLine("TULSA", "OK", "KDOR-TV", "TV", "CANCL", "1004", "TBN", "Tulsa", "17"),
		// Too few fields.
		"GARBAGE|LINE^|",
	}, "\n")

	facilities, stats, err := ParseFacilities(strings.NewReader(input), testutil.Logger())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Records)
	assert.Equal(t, 3, stats.Kept)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 1, stats.BadLines)
	require.Len(t, facilities, 3)

	keci := facilities[0]
	assert.Equal(t, 1001, keci.FacilityID)
	assert.Equal(t, "KECI-TV", keci.Callsign)
	assert.Equal(t, "MISSOULA", keci.CommunityCity)
	assert.Equal(t, "MT", keci.CommunityState)
	assert.Equal(t, "NBC", keci.NetworkAffiliation)
	assert.Equal(t, "13", keci.TvVirtualChannel)
	assert.True(t, keci.Active)

	wscv := facilities[1]
	assert.Equal(t, "TELEMUNDO", wscv.NetworkAffiliation)

	kdor := facilities[2]
	assert.False(t, kdor.Active)
}

func TestParseFacilities_EmptyInput(t *testing.T) {
	facilities, stats, err := ParseFacilities(strings.NewReader(""), testutil.Logger())
	require.NoError(t, err)
	assert.Empty(t, facilities)
	assert.Equal(t, 0, stats.Records)
}
