// Package epgmatch binds catalog channels to EPG channels through an
// ordered pipeline of match strategies.
package epgmatch

import (
	"regexp"
	"strings"

	"github.com/muxarr/muxarr/internal/fcc"
	"github.com/muxarr/muxarr/internal/models"
)

var (
	schedulesDirectRe = regexp.MustCompile(`^I(\d+)\.json\.schedulesdirect\.org$`)
	dottedCallsignRe  = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9\-]{2,9})\.`)
	simpleCallsignRe  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9\-]{2,9}$`)

	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

// ExtractCallsign pulls a station callsign out of an EPG channel id.
// Recognized shapes: Schedules Direct station ids, "CALLSIGN.suffix"
// forms, and short bare identifiers. Returns "" when nothing fits.
func ExtractCallsign(channelID string) string {
	if m := schedulesDirectRe.FindStringSubmatch(channelID); m != nil {
		return m[1]
	}
	if m := dottedCallsignRe.FindStringSubmatch(channelID); m != nil {
		return strings.ToUpper(m[1])
	}
	if !strings.Contains(channelID, ".") && simpleCallsignRe.MatchString(channelID) {
		return strings.ToUpper(channelID)
	}
	return ""
}

// normalizeName canonicalizes a display name for index lookup: lowercase
// with non-alphanumeric runs collapsed to single spaces.
func normalizeName(name string) string {
	lower := strings.ToLower(name)
	return strings.TrimSpace(nonAlnumRe.ReplaceAllString(lower, " "))
}

// Index holds the per-run lookup tables over all EPG channels. On key
// collisions the first channel wins, so feed channels in source priority
// order.
type Index struct {
	byID       map[string]*models.EpgChannel
	byName     map[string]*models.EpgChannel
	byCallsign map[string]*models.EpgChannel
}

// BuildIndex constructs the lookup tables.
func BuildIndex(channels []*models.EpgChannel) *Index {
	idx := &Index{
		byID:       make(map[string]*models.EpgChannel, len(channels)),
		byName:     make(map[string]*models.EpgChannel, len(channels)),
		byCallsign: make(map[string]*models.EpgChannel, len(channels)),
	}

	put := func(m map[string]*models.EpgChannel, key string, ch *models.EpgChannel) {
		if key == "" {
			return
		}
		if _, exists := m[key]; !exists {
			m[key] = ch
		}
	}

	for _, ch := range channels {
		put(idx.byID, strings.ToLower(ch.ChannelID), ch)

		for _, name := range ch.Names() {
			put(idx.byName, normalizeName(name), ch)
		}

		callsign := ExtractCallsign(ch.ChannelID)
		if callsign == "" {
			continue
		}
		put(idx.byCallsign, callsign, ch)
		put(idx.byCallsign, fcc.BaseCallsign(callsign), ch)
		put(idx.byCallsign, strings.ReplaceAll(callsign, "-", ""), ch)
	}
	return idx
}

// ByID looks up an EPG channel by its id, case-insensitively.
func (idx *Index) ByID(id string) *models.EpgChannel {
	if id == "" {
		return nil
	}
	return idx.byID[strings.ToLower(id)]
}

// ByName looks up an EPG channel by normalized display name.
func (idx *Index) ByName(name string) *models.EpgChannel {
	key := normalizeName(name)
	if key == "" {
		return nil
	}
	return idx.byName[key]
}

// ByCallsign looks up an EPG channel by callsign, trying the given form
// and its base form.
func (idx *Index) ByCallsign(callsign string) *models.EpgChannel {
	if callsign == "" {
		return nil
	}
	upper := strings.ToUpper(callsign)
	if ch := idx.byCallsign[upper]; ch != nil {
		return ch
	}
	return idx.byCallsign[fcc.BaseCallsign(upper)]
}

// BestFuzzy scans every indexed display name and returns the most
// similar EPG channel with its score in [0, 1].
func (idx *Index) BestFuzzy(name string) (*models.EpgChannel, float64) {
	key := normalizeName(name)
	if key == "" {
		return nil, 0
	}

	var best *models.EpgChannel
	var bestScore float64
	for candidate, ch := range idx.byName {
		score := similarity(key, candidate)
		if score > bestScore {
			best, bestScore = ch, score
		}
	}
	return best, bestScore
}

// similarity is the Dice coefficient over character bigrams of the two
// normalized names. Equal strings score 1.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	bigrams := make(map[string]int)
	for i := 0; i+2 <= len(a); i++ {
		bigrams[a[i:i+2]]++
	}
	matches := 0
	for i := 0; i+2 <= len(b); i++ {
		if bigrams[b[i:i+2]] > 0 {
			bigrams[b[i:i+2]]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(len(a)+len(b)-2)
}
