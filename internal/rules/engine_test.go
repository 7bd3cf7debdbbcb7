package rules

import (
	"testing"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providerRules() []models.TagRule {
	enabled := models.BoolPtr(true)
	return []models.TagRule{
		{Pattern: "US:", PatternKind: models.PatternKindPrefix, TagName: "US", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: enabled},
		{Pattern: "US|", PatternKind: models.PatternKindPrefix, TagName: "US", Source: models.RuleSourceCategoryName, Enabled: enabled},
		{Pattern: "ᵁᴴᴰ", PatternKind: models.PatternKindContains, TagName: "UHD", Source: models.RuleSourceBoth, RemoveFromName: true, Enabled: enabled},
		{Pattern: "ᴴᴰ", PatternKind: models.PatternKindContains, TagName: "HD", Source: models.RuleSourceBoth, Enabled: enabled},
		{Pattern: "ᴿᴬᵂ", PatternKind: models.PatternKindContains, TagName: "RAW", Source: models.RuleSourceCategoryName, Enabled: enabled},
		{Pattern: "⁶⁰ᶠᵖˢ", PatternKind: models.PatternKindContains, TagName: "60FPS", Source: models.RuleSourceCategoryName, Enabled: enabled},
		{Pattern: `\b3840P\b`, PatternKind: models.PatternKindRegex, TagName: "4K", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: enabled},
		{Pattern: `\(([^\)]+)\)`, PatternKind: models.PatternKindRegex, TagName: models.TagNameCallsign, Source: models.RuleSourceChannelName, Enabled: enabled},
	}
}

func TestEngine_Extract_SuperscriptQuality(t *testing.T) {
	engine := NewEngine(nil)

	result := engine.Extract(
		"US: FASHION ONE ᵁᴴᴰ 3840P",
		"US| ENTERTAINMENT ᴴᴰ/ᴿᴬᵂ ⁶⁰ᶠᵖˢ",
		providerRules(),
	)

	assert.Equal(t, "FASHION ONE", result.CleanedName)
	for _, want := range []string{"US", "UHD", "4K", "HD", "RAW", "60FPS"} {
		assert.Contains(t, result.Tags, want)
	}
}

func TestEngine_Extract_CallsignExtraction(t *testing.T) {
	engine := NewEngine(nil)

	result := engine.Extract(
		"US: TELEMUNDO 51 MIAMI (WSCV)",
		"US| ENTERTAINMENT ᴴᴰ/ᴿᴬᵂ ⁶⁰ᶠᵖˢ",
		providerRules(),
	)

	assert.Equal(t, "TELEMUNDO 51 MIAMI WSCV", result.CleanedName)
	for _, want := range []string{"US", "HD", "RAW", "60FPS", "WSCV"} {
		assert.Contains(t, result.Tags, want)
	}
}

func TestEngine_Extract_LocationExtraction(t *testing.T) {
	engine := NewEngine(nil)
	rules := []models.TagRule{
		{Pattern: `\[([^\]]+)\]`, PatternKind: models.PatternKindRegex, TagName: models.TagNameLocation, Source: models.RuleSourceChannelName, Enabled: models.BoolPtr(true)},
	}

	result := engine.Extract("NBC 13 [MONTANA]", "", rules)

	assert.Equal(t, "NBC 13 MONTANA", result.CleanedName)
	assert.Contains(t, result.Tags, "MONTANA")
}

func TestEngine_Extract_CleanupSentinel(t *testing.T) {
	engine := NewEngine(nil)
	rules := []models.TagRule{
		{Pattern: "VIP", PatternKind: models.PatternKindContains, TagName: models.TagNameCleanup, Source: models.RuleSourceChannelName, Enabled: models.BoolPtr(true)},
	}

	result := engine.Extract("VIP ESPN", "", rules)

	assert.Equal(t, "ESPN", result.CleanedName)
	assert.Empty(t, result.Tags)
}

func TestEngine_Extract_DisabledRuleSkipped(t *testing.T) {
	engine := NewEngine(nil)
	rules := []models.TagRule{
		{Pattern: "HD", PatternKind: models.PatternKindContains, TagName: "HD", Source: models.RuleSourceChannelName, Enabled: models.BoolPtr(false)},
	}

	result := engine.Extract("ESPN HD", "", rules)

	assert.Empty(t, result.Tags)
	assert.Equal(t, "ESPN HD", result.CleanedName)
}

func TestEngine_Extract_InvalidRegexMatchesNothing(t *testing.T) {
	engine := NewEngine(nil)
	rules := []models.TagRule{
		{Pattern: `[unclosed`, PatternKind: models.PatternKindRegex, TagName: "BAD", Source: models.RuleSourceChannelName, Enabled: models.BoolPtr(true)},
	}

	result := engine.Extract("ESPN", "", rules)

	assert.Empty(t, result.Tags)
	assert.Equal(t, "ESPN", result.CleanedName)
}

func TestEngine_Extract_Deterministic(t *testing.T) {
	engine := NewEngine(nil)
	rules := providerRules()

	first := engine.Extract("US: FASHION ONE ᵁᴴᴰ 3840P", "US| ENTERTAINMENT ᴴᴰ/ᴿᴬᵂ ⁶⁰ᶠᵖˢ", rules)
	second := engine.Extract("US: FASHION ONE ᵁᴴᴰ 3840P", "US| ENTERTAINMENT ᴴᴰ/ᴿᴬᵂ ⁶⁰ᶠᵖˢ", rules)

	assert.Equal(t, first, second)
}

func TestEngine_Extract_EmptyDelimitersRemoved(t *testing.T) {
	engine := NewEngine(nil)
	rules := []models.TagRule{
		{Pattern: "HD", PatternKind: models.PatternKindContains, TagName: "HD", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: models.BoolPtr(true)},
	}

	result := engine.Extract("ESPN (HD)", "", rules)

	assert.Equal(t, "ESPN", result.CleanedName)
}

func TestNormalizeTag_SuperscriptFolding(t *testing.T) {
	cases := map[string]string{
		"ᵁᴴᴰ":          "UHD",
		"⁶⁰ᶠᵖˢ":        "60FPS",
		"ᴿᴬᵂ":          "RAW",
		"new york":     "NEW_YORK",
		"  Sports  ":   "SPORTS",
		"A&E":          "AE",
		"CHICO-REDDING": "CHICO-REDDING",
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeTag(input), "input %q", input)
	}
}

func TestNormalizeTag_Idempotent(t *testing.T) {
	inputs := []string{"ᵁᴴᴰ", "⁶⁰ᶠᵖˢ", "new york", "US| Sports", "KECI-TV", "", "  "}
	for _, input := range inputs {
		once := NormalizeTag(input)
		require.Equal(t, once, NormalizeTag(once), "input %q", input)
	}
}

func TestFlattenRuleSets(t *testing.T) {
	sets := []*models.RuleSet{
		{
			Name:    "first",
			Enabled: models.BoolPtr(true),
			Rules: []models.TagRule{
				{Pattern: "a", TagName: "A"},
			},
		},
		{
			Name:    "disabled",
			Enabled: models.BoolPtr(false),
			Rules: []models.TagRule{
				{Pattern: "b", TagName: "B"},
			},
		},
		{
			Name:    "second",
			Enabled: models.BoolPtr(true),
			Rules: []models.TagRule{
				{Pattern: "c", TagName: "C"},
			},
		},
	}

	rules := FlattenRuleSets(sets)
	require.Len(t, rules, 2)
	assert.Equal(t, "A", rules[0].TagName)
	assert.Equal(t, "C", rules[1].TagName)
}
