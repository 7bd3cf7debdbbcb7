package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
	"github.com/muxarr/muxarr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRuleSet(t *testing.T, ruleSets repository.RuleSetRepository, name string) *models.RuleSet {
	t.Helper()
	enabled := models.BoolPtr(true)
	disabled := models.BoolPtr(false)
	rs := &models.RuleSet{
		Name:        name,
		Description: "US provider cleanup",
		Enabled:     enabled,
		Rules: []models.TagRule{
			{Priority: 10, Pattern: "US:", PatternKind: models.PatternKindPrefix, TagName: "US", Source: models.RuleSourceChannelName, RemoveFromName: true, Enabled: enabled},
			{Priority: 20, Pattern: `\[([^\]]+)\]`, PatternKind: models.PatternKindRegex, TagName: models.TagNameLocation, Source: models.RuleSourceChannelName, Enabled: enabled},
			{Priority: 30, Pattern: "VIP", PatternKind: models.PatternKindContains, TagName: "VIP", Source: models.RuleSourceBoth, Enabled: disabled},
		},
	}
	require.NoError(t, ruleSets.Create(context.Background(), rs))
	return rs
}

func TestExportService_RoundTrip(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	ruleSets := repository.NewRuleSetRepository(db.DB)
	service := NewExportService(ruleSets)

	original := seedRuleSet(t, ruleSets, "US cleanup")

	var buf bytes.Buffer
	require.NoError(t, service.ExportJSON(ctx, original.ID, &buf))
	assert.Contains(t, buf.String(), `"version": 1`)
	assert.Contains(t, buf.String(), `"type": "ruleset"`)

	// Imports may not collide with an existing name.
	_, err := service.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.Error(t, err)

	doc, err := service.Export(ctx, original.ID)
	require.NoError(t, err)
	doc.RuleSet.Name = "US cleanup (copy)"

	imported, err := service.Import(ctx, doc)
	require.NoError(t, err)

	reloaded, err := ruleSets.GetByID(ctx, imported.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "US cleanup (copy)", reloaded.Name)
	assert.Equal(t, original.Description, reloaded.Description)
	assert.False(t, reloaded.IsDefault)
	require.Len(t, reloaded.Rules, len(original.Rules))

	for i, rule := range reloaded.Rules {
		want := original.Rules[i]
		assert.Equal(t, want.Priority, rule.Priority)
		assert.Equal(t, want.Pattern, rule.Pattern)
		assert.Equal(t, want.PatternKind, rule.PatternKind)
		assert.Equal(t, want.TagName, rule.TagName)
		assert.Equal(t, want.Source, rule.Source)
		assert.Equal(t, want.RemoveFromName, rule.RemoveFromName)
		assert.Equal(t, models.BoolVal(want.Enabled), models.BoolVal(rule.Enabled))
	}
}

func TestExportService_RejectsForeignDocuments(t *testing.T) {
	db := testutil.NewDB(t)
	service := NewExportService(repository.NewRuleSetRepository(db.DB))
	ctx := context.Background()

	_, err := service.Import(ctx, &RuleSetDocument{Version: 1, Type: "filterset", RuleSet: RuleSetExport{Name: "x"}})
	assert.Error(t, err)

	_, err = service.Import(ctx, &RuleSetDocument{Version: 2, Type: "ruleset", RuleSet: RuleSetExport{Name: "x"}})
	assert.Error(t, err)

	_, err = service.Import(ctx, &RuleSetDocument{Version: 1, Type: "ruleset"})
	assert.Error(t, err)
}
