// Package categorize resolves transaction descriptions to category names.
//
// Custom rules are tried first, highest priority first, ties in the order given.
// A rule pattern is a case-insensitive regular expression; a pattern that does not
// compile is matched as a case-insensitive substring instead. When no custom rule
// matches, the Builtin table is scanned, and Default is returned when nothing hits.
package categorize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/and161185/kesef/internal/model"
)

type matcher struct {
	re       *regexp.Regexp // nil when the pattern is not a valid expression
	literal  string         // lower-cased pattern for the substring fallback
	category string
}

func (m matcher) match(desc, lower string) bool {
	if m.re != nil {
		return m.re.MatchString(desc)
	}
	return strings.Contains(lower, m.literal)
}

// RuleSet is a compiled, ordered snapshot of custom rules.
// It is immutable and safe for concurrent use.
type RuleSet struct {
	matchers []matcher
}

// Compile orders rules by descending priority, keeping the given order for ties,
// and prepares their patterns.
func Compile(rules []model.CategoryRule) *RuleSet {
	sorted := append([]model.CategoryRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Priority > sorted[j].Priority })

	rs := &RuleSet{matchers: make([]matcher, 0, len(sorted))}
	for _, r := range sorted {
		m := matcher{literal: strings.ToLower(r.Pattern), category: r.Category}
		if re, err := regexp.Compile("(?i)" + r.Pattern); err == nil {
			m.re = re
		}
		rs.matchers = append(rs.matchers, m)
	}
	return rs
}

// Categorize returns the category for description.
func (rs *RuleSet) Categorize(description string) string {
	lower := strings.ToLower(description)
	if rs != nil {
		for _, m := range rs.matchers {
			if m.match(description, lower) {
				return m.category
			}
		}
	}
	return builtin(lower)
}

// Categorize is a one-shot Compile(rules).Categorize(description).
func Categorize(description string, rules []model.CategoryRule) string {
	return Compile(rules).Categorize(description)
}

func builtin(lower string) string {
	for _, c := range Builtin {
		for _, p := range c.Patterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				return c.Name
			}
		}
	}
	return Default
}
