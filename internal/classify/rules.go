package classify

import (
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/fixedassets/depflow/internal/tables"
)

// Rule maps description keywords (or a regex) to a MACRS class with a
// weight. Rules are loaded as structured data; malformed entries are
// skipped with a warning.
type Rule struct {
	Name      string   `json:"name" mapstructure:"name"`
	ClassName string   `json:"class_name" mapstructure:"class_name"`
	Pattern   string   `json:"pattern" mapstructure:"pattern"`
	Keywords  []string `json:"keywords" mapstructure:"keywords"`
	Weight    float64  `json:"weight" mapstructure:"weight"`
	Priority  int      `json:"priority" mapstructure:"priority"`
	IsRegex   bool     `json:"is_regex" mapstructure:"is_regex"`
}

// RuleMatch is one scored rule hit.
type RuleMatch struct {
	Rule  Rule
	Score float64
}

// RuleMatcher evaluates a normalized description against the rule table.
type RuleMatcher struct {
	compiledRegex map[string]*regexp.Regexp
	rules         []Rule
	minScore      float64
}

// NewRuleMatcher creates a matcher, pre-compiling regex rules and dropping
// malformed entries with a logged warning.
func NewRuleMatcher(rules []Rule, minScore float64, logger *slog.Logger) *RuleMatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if minScore <= 0 {
		minScore = 0.60
	}

	m := &RuleMatcher{
		compiledRegex: make(map[string]*regexp.Regexp),
		minScore:      minScore,
	}

	for _, rule := range rules {
		if rule.ClassName == "" {
			logger.Warn("skipping rule without class name", "rule", rule.Name)
			continue
		}
		if _, err := tables.ClassByName(rule.ClassName); err != nil {
			logger.Warn("skipping rule with unknown class", "rule", rule.Name, "class", rule.ClassName)
			continue
		}
		if rule.IsRegex {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				logger.Warn("skipping rule with invalid regex", "rule", rule.Name, "error", err)
				continue
			}
			m.compiledRegex[rule.Name] = re
		} else if len(rule.Keywords) == 0 {
			logger.Warn("skipping rule with no keywords", "rule", rule.Name)
			continue
		}
		if rule.Weight <= 0 || rule.Weight > 1 {
			rule.Weight = 0.85
		}
		m.rules = append(m.rules, rule)
	}

	sort.SliceStable(m.rules, func(i, j int) bool {
		return m.rules[i].Priority > m.rules[j].Priority
	})

	return m
}

// MinScore is the threshold a match must meet to decide a classification.
func (m *RuleMatcher) MinScore() float64 {
	return m.minScore
}

// Match scores the normalized description against every rule and returns the
// best hit, if any. A rule's keywords are alternatives: any hit scores most
// of the weight, and full coverage reaches the whole weight. Regex rules
// score the full weight on a match.
func (m *RuleMatcher) Match(normalized string) (RuleMatch, bool) {
	var best RuleMatch
	found := false

	for _, rule := range m.rules {
		score := m.score(rule, normalized)
		if score <= 0 {
			continue
		}
		if !found || score > best.Score {
			best = RuleMatch{Rule: rule, Score: score}
			found = true
		}
	}

	return best, found
}

func (m *RuleMatcher) score(rule Rule, normalized string) float64 {
	if rule.IsRegex {
		if re, ok := m.compiledRegex[rule.Name]; ok && re.MatchString(normalized) {
			return rule.Weight
		}
		return 0
	}

	matched := 0
	for _, kw := range rule.Keywords {
		if containsWord(normalized, strings.ToLower(kw)) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return rule.Weight * (0.8 + 0.2*float64(matched)/float64(len(rule.Keywords)))
}

// containsWord reports whether the normalized text contains the keyword as
// a whole word (or phrase).
func containsWord(normalized, keyword string) bool {
	idx := strings.Index(normalized, keyword)
	for idx >= 0 {
		before := idx == 0 || normalized[idx-1] == ' '
		end := idx + len(keyword)
		after := end == len(normalized) || normalized[end] == ' '
		if before && after {
			return true
		}
		next := strings.Index(normalized[idx+1:], keyword)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}
