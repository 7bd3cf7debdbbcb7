package epgmatch

import (
	"testing"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCallsign(t *testing.T) {
	cases := map[string]string{
		"I12345.json.schedulesdirect.org": "12345",
		"KECI-DT.us_locals1":              "KECI-DT",
		"WNBC.us":                         "WNBC",
		"keci":                            "KECI",
		"abc.news.go.com":                 "ABC",
		"":                                "",
		"12345":                           "",
	}
	for input, want := range cases {
		assert.Equal(t, want, ExtractCallsign(input), "input %q", input)
	}
}

func epgChannel(id string, names ...string) *models.EpgChannel {
	ch := &models.EpgChannel{ChannelID: id}
	ch.SetNames(names)
	return ch
}

func TestBuildIndex_Lookups(t *testing.T) {
	keci := epgChannel("KECI-DT.us_locals1", "KECI", "NBC Montana")
	cnn := epgChannel("cnn.us", "CNN", "CNN US")
	idx := BuildIndex([]*models.EpgChannel{keci, cnn})

	assert.Same(t, cnn, idx.ByID("CNN.US"))
	assert.Same(t, keci, idx.ByName("nbc  montana"))
	assert.Same(t, keci, idx.ByCallsign("KECI-DT"))
	assert.Same(t, keci, idx.ByCallsign("KECI"))
	assert.Same(t, keci, idx.ByCallsign("KECIDT"))
	assert.Same(t, keci, idx.ByCallsign("KECI-TV"))
	assert.Nil(t, idx.ByCallsign("WXYZ"))
}

func TestBuildIndex_FirstChannelWinsOnCollision(t *testing.T) {
	first := epgChannel("espn.us", "ESPN")
	second := epgChannel("espn.uk", "ESPN")
	idx := BuildIndex([]*models.EpgChannel{first, second})

	assert.Same(t, first, idx.ByName("ESPN"))
}

func TestBestFuzzy(t *testing.T) {
	espn := epgChannel("espn.us", "ESPN")
	espn2 := epgChannel("espn2.us", "ESPN 2")
	cnn := epgChannel("cnn.us", "CNN International")
	idx := BuildIndex([]*models.EpgChannel{espn, espn2, cnn})

	best, score := idx.BestFuzzy("ESPN")
	require.NotNil(t, best)
	assert.Same(t, espn, best)
	assert.Equal(t, 1.0, score)

	best, score = idx.BestFuzzy("CNN Intl")
	require.NotNil(t, best)
	assert.Same(t, cnn, best)
	assert.Greater(t, score, 0.3)
	assert.Less(t, score, 1.0)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, similarity("espn", "espn"))
	assert.Equal(t, 0.0, similarity("espn", "x"))
	assert.Greater(t, similarity("nbc montana", "nbc montana hd"), 0.8)
	assert.Less(t, similarity("espn", "cnn"), 0.3)
}
