package rules

import (
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/muxarr/muxarr/internal/models"
)

var (
	bracketRe    = regexp.MustCompile(`\[([^\]]+)\]`)
	parenRe      = regexp.MustCompile(`\(([^)]+)\)`)
	emptyPairsRe = regexp.MustCompile(`\(\s*\)|\[\s*\]|\{\s*\}`)
)

// edgeTrimChars are stripped from both ends of the cleaned name after all
// rules have run.
const edgeTrimChars = ":-|• \t"

// Engine applies ordered tag rules to channel and category names.
// Compiled patterns are cached across invocations; an Engine is safe for
// concurrent use.
type Engine struct {
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]*regexp.Regexp
}

// NewEngine creates a rule engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger,
		cache:  make(map[string]*regexp.Regexp),
	}
}

// Result is the outcome of applying rules to one channel.
type Result struct {
	// Tags holds normalized tag names in first-seen order.
	Tags []string

	// CleanedName is the channel name after excisions and post-processing.
	CleanedName string
}

// Extract runs the rules in order against the channel and category names.
// Rules must already be sorted by priority; disabled rules are skipped.
func (e *Engine) Extract(channelName, categoryName string, rules []models.TagRule) Result {
	working := channelName
	var tags []string
	seen := make(map[string]struct{})

	addTag := func(name string) {
		normalized := NormalizeTag(name)
		if normalized == "" {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		tags = append(tags, normalized)
	}

	for i := range rules {
		rule := &rules[i]
		if !models.BoolVal(rule.Enabled) {
			continue
		}
		re := e.compile(rule)
		if re == nil {
			continue
		}

		// Search the channel name first, then the category, per the
		// rule's source selector. Only channel-side matches may edit
		// the cleaned name.
		matchedChannel := false
		var loc []int
		if rule.Source == models.RuleSourceChannelName || rule.Source == models.RuleSourceBoth {
			if loc = re.FindStringIndex(working); loc != nil {
				matchedChannel = true
			}
		}
		if loc == nil && (rule.Source == models.RuleSourceCategoryName || rule.Source == models.RuleSourceBoth) {
			loc = re.FindStringIndex(categoryName)
		}
		if loc == nil {
			continue
		}

		switch rule.TagName {
		case models.TagNameLocation:
			working = e.extractDelimited(working, matchedChannel, loc, bracketRe, addTag)
		case models.TagNameCallsign:
			working = e.extractDelimited(working, matchedChannel, loc, parenRe, addTag)
		case models.TagNameCleanup:
			if matchedChannel {
				working = working[:loc[0]] + working[loc[1]:]
			}
		default:
			addTag(rule.TagName)
			if matchedChannel && rule.RemoveFromName {
				working = working[:loc[0]] + working[loc[1]:]
			}
		}
	}

	return Result{Tags: tags, CleanedName: postProcess(working)}
}

// extractDelimited pulls the delimited payload out of a matched region,
// tags it, and unwraps the delimiters in the working name. Category-side
// matches tag without editing the name.
func (e *Engine) extractDelimited(working string, matchedChannel bool, loc []int, delimRe *regexp.Regexp, addTag func(string)) string {
	var region string
	if matchedChannel {
		region = working[loc[0]:loc[1]]
	} else {
		region = working
	}

	m := delimRe.FindStringSubmatchIndex(region)
	if m == nil {
		return working
	}
	inner := region[m[2]:m[3]]
	addTag(inner)

	if !matchedChannel {
		return working
	}
	// Unwrap the delimiters: "[text]" or "(text)" becomes "text".
	offset := loc[0]
	return working[:offset+m[0]] + inner + working[offset+m[1]:]
}

// compile returns the cached case-insensitive matcher for a rule, or nil
// when the pattern does not compile.
func (e *Engine) compile(rule *models.TagRule) *regexp.Regexp {
	key := string(rule.PatternKind) + "\x00" + rule.Pattern

	e.mu.Lock()
	defer e.mu.Unlock()
	if re, ok := e.cache[key]; ok {
		return re
	}

	var expr string
	switch rule.PatternKind {
	case models.PatternKindPrefix:
		expr = "(?i)^" + regexp.QuoteMeta(rule.Pattern)
	case models.PatternKindSuffix:
		expr = "(?i)" + regexp.QuoteMeta(rule.Pattern) + "$"
	case models.PatternKindContains:
		expr = "(?i)" + regexp.QuoteMeta(rule.Pattern)
	case models.PatternKindRegex:
		expr = "(?i)" + rule.Pattern
	default:
		expr = "(?i)" + regexp.QuoteMeta(rule.Pattern)
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		e.logger.Warn("invalid rule pattern",
			slog.String("pattern", rule.Pattern),
			slog.String("kind", string(rule.PatternKind)),
			slog.String("error", err.Error()),
		)
		e.cache[key] = nil
		return nil
	}
	e.cache[key] = re
	return re
}

// postProcess tidies the cleaned name after all excisions: drop empty
// delimiter pairs, strip leading and trailing punctuation runs, collapse
// whitespace.
func postProcess(name string) string {
	name = emptyPairsRe.ReplaceAllString(name, "")
	name = strings.Trim(name, edgeTrimChars)
	name = whitespaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// FlattenRuleSets concatenates enabled rules from rule sets in order.
// Rule sets arrive in assignment priority order; rules within each set
// are assumed sorted by priority.
func FlattenRuleSets(sets []*models.RuleSet) []models.TagRule {
	var rules []models.TagRule
	for _, rs := range sets {
		if !models.BoolVal(rs.Enabled) {
			continue
		}
		rules = append(rules, rs.Rules...)
	}
	return rules
}
