// Package rules provides a YAML-based rules engine that decides whether a
// transaction is hidden and which category it receives.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/rumor-ml/commons.systems/bankimport/internal/domain"
	"gopkg.in/yaml.v3"
)

// RuleSet is the top-level YAML structure of a rules file.
type RuleSet struct {
	Rules []domain.Rule `yaml:"rules"`
}

// Engine performs rule matching on transaction descriptions. The rule
// snapshot it holds is immutable for the engine's lifetime; matching is
// pure and safe for concurrent use.
type Engine struct {
	rules []domain.Rule // enabled only, sorted by priority desc then id asc
}

// Resolution is the outcome of applying the rule set to one description.
type Resolution struct {
	Ignore   bool
	Category string
	// RuleID identifies the categorize rule that matched, for debugging.
	// Zero when the category came from a fallback.
	RuleID int
}

// NewEngine creates a rules engine from an in-memory rule snapshot.
// Disabled rules are dropped; the rest are validated and ordered by
// priority (highest first), ties broken by id ascending so results are
// reproducible regardless of input order.
func NewEngine(ruleSet []domain.Rule) (*Engine, error) {
	enabled := make([]domain.Rule, 0, len(ruleSet))
	for i, rule := range ruleSet {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule %d (keyword %q): %w", i, rule.Keyword, err)
		}
		if rule.Enabled {
			enabled = append(enabled, rule)
		}
	}

	sort.SliceStable(enabled, func(i, j int) bool {
		if enabled[i].Priority != enabled[j].Priority {
			return enabled[i].Priority > enabled[j].Priority
		}
		return enabled[i].ID < enabled[j].ID
	})

	return &Engine{rules: enabled}, nil
}

// LoadFromYAML creates an engine from YAML rule data.
func LoadFromYAML(data []byte) (*Engine, error) {
	var ruleSet RuleSet
	if err := yaml.Unmarshal(data, &ruleSet); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}
	return NewEngine(ruleSet.Rules)
}

// LoadFromFile loads rules from a filesystem path.
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	engine, err := LoadFromYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return engine, nil
}

// Resolve applies the rule set to a description. Two independent slots are
// filled first-match-wins: the first matching ignore rule sets Ignore, and
// the first matching categorize rule sets Category. A single description
// may trigger one of each. When no categorize rule matches, Category falls
// back to defaultCategory, then to domain.DefaultCategory.
//
// Any panic inside matching is recovered here and treated as "no rules
// matched": a malformed rule must degrade to the default category, never
// abort an import.
func (e *Engine) Resolve(description, defaultCategory string) (res Resolution) {
	res = Resolution{Category: fallbackCategory(defaultCategory)}

	defer func() {
		if r := recover(); r != nil {
			res = Resolution{Category: fallbackCategory(defaultCategory)}
		}
	}()

	// Rules never match empty text.
	if strings.TrimSpace(description) == "" {
		return res
	}

	ignoreSet := false
	categorySet := false
	for _, rule := range e.rules {
		if ignoreSet && categorySet {
			// Both slots filled; scanning further cannot change the result.
			break
		}
		if !matchKeyword(description, rule.Keyword, rule.CaseSensitive) {
			continue
		}
		switch rule.Action {
		case domain.RuleActionIgnore:
			if !ignoreSet {
				res.Ignore = true
				ignoreSet = true
			}
		case domain.RuleActionCategorize:
			if !categorySet && strings.TrimSpace(rule.Category) != "" {
				res.Category = rule.Category
				res.RuleID = rule.ID
				categorySet = true
			}
		}
	}

	return res
}

// Rules returns a copy of the active rules in evaluation order.
func (e *Engine) Rules() []domain.Rule {
	out := make([]domain.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

func fallbackCategory(defaultCategory string) string {
	if strings.TrimSpace(defaultCategory) != "" {
		return defaultCategory
	}
	return domain.DefaultCategory
}

// matchKeyword tests the keyword against the description requiring word
// boundaries on both sides: "CAT" must match "CAT FOOD" but not "CATALOG".
// The keyword is escaped before compiling, so any literal keyword is safe
// regardless of regex metacharacters it contains.
func matchKeyword(description, keyword string, caseSensitive bool) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}

	pattern := `(?:^|[^\w])` + regexp.QuoteMeta(keyword) + `(?:[^\w]|$)`
	if !caseSensitive {
		pattern = `(?i)` + pattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		// QuoteMeta makes this unreachable for any keyword string; treat a
		// compile failure as a non-match rather than propagating it.
		return false
	}
	return re.MatchString(description)
}
