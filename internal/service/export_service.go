package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/muxarr/muxarr/internal/models"
	"github.com/muxarr/muxarr/internal/repository"
)

// ruleSetDocVersion is the current export document version.
const ruleSetDocVersion = 1

// ruleSetDocType tags rule set export documents.
const ruleSetDocType = "ruleset"

// RuleSetDocument is the portable form of a tag rule set. Identifiers
// and assignments stay behind; only the rules travel.
type RuleSetDocument struct {
	Version int           `json:"version"`
	Type    string        `json:"type"`
	RuleSet RuleSetExport `json:"ruleset"`
}

// RuleSetExport is the rule set body inside a document.
type RuleSetExport struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Rules       []TagRuleExport `json:"rules"`
}

// TagRuleExport is one rule inside a document.
type TagRuleExport struct {
	Priority       int                `json:"priority"`
	Pattern        string             `json:"pattern"`
	PatternKind    models.PatternKind `json:"pattern_kind"`
	TagName        string             `json:"tag_name"`
	Source         models.RuleSource  `json:"source"`
	RemoveFromName bool               `json:"remove_from_name"`
	Enabled        bool               `json:"enabled"`
}

// ExportService moves tag rule sets in and out as JSON documents.
type ExportService struct {
	ruleSets repository.RuleSetRepository
}

// NewExportService creates an export service.
func NewExportService(ruleSets repository.RuleSetRepository) *ExportService {
	return &ExportService{ruleSets: ruleSets}
}

// Export builds the document for one rule set.
func (s *ExportService) Export(ctx context.Context, id models.ULID) (*RuleSetDocument, error) {
	rs, err := s.ruleSets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, fmt.Errorf("rule set %s not found", id)
	}

	doc := &RuleSetDocument{
		Version: ruleSetDocVersion,
		Type:    ruleSetDocType,
		RuleSet: RuleSetExport{
			Name:        rs.Name,
			Description: rs.Description,
			Rules:       make([]TagRuleExport, 0, len(rs.Rules)),
		},
	}
	for _, rule := range rs.Rules {
		doc.RuleSet.Rules = append(doc.RuleSet.Rules, TagRuleExport{
			Priority:       rule.Priority,
			Pattern:        rule.Pattern,
			PatternKind:    rule.PatternKind,
			TagName:        rule.TagName,
			Source:         rule.Source,
			RemoveFromName: rule.RemoveFromName,
			Enabled:        models.BoolVal(rule.Enabled),
		})
	}
	return doc, nil
}

// ExportJSON writes the document for one rule set.
func (s *ExportService) ExportJSON(ctx context.Context, id models.ULID, w io.Writer) error {
	doc, err := s.Export(ctx, id)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// Import creates a new rule set from a document. The name must not
// collide with an existing set; imported sets are never defaults.
func (s *ExportService) Import(ctx context.Context, doc *RuleSetDocument) (*models.RuleSet, error) {
	if doc.Type != ruleSetDocType {
		return nil, fmt.Errorf("unexpected document type %q", doc.Type)
	}
	if doc.Version != ruleSetDocVersion {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	if doc.RuleSet.Name == "" {
		return nil, models.ErrNameRequired
	}

	existing, err := s.ruleSets.GetByName(ctx, doc.RuleSet.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("rule set %q already exists", doc.RuleSet.Name)
	}

	rs := &models.RuleSet{
		Name:        doc.RuleSet.Name,
		Description: doc.RuleSet.Description,
		Enabled:     models.BoolPtr(true),
		Rules:       make([]models.TagRule, 0, len(doc.RuleSet.Rules)),
	}
	for _, rule := range doc.RuleSet.Rules {
		enabled := rule.Enabled
		rs.Rules = append(rs.Rules, models.TagRule{
			Priority:       rule.Priority,
			Pattern:        rule.Pattern,
			PatternKind:    rule.PatternKind,
			TagName:        rule.TagName,
			Source:         rule.Source,
			RemoveFromName: rule.RemoveFromName,
			Enabled:        &enabled,
		})
	}
	if err := s.ruleSets.Create(ctx, rs); err != nil {
		return nil, fmt.Errorf("creating rule set: %w", err)
	}
	return rs, nil
}

// ImportJSON reads a document and creates the rule set.
func (s *ExportService) ImportJSON(ctx context.Context, r io.Reader) (*models.RuleSet, error) {
	var doc RuleSetDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding rule set document: %w", err)
	}
	return s.Import(ctx, &doc)
}
