package session

import (
	"fmt"
	"strings"
)

// NameMatcher matches items against filter rules by name. A rule matches
// an item whose name equals it, ignoring case. Rules starting with "!"
// exclude. An item passes when no exclusion matches and either an
// inclusion matches or there are only exclusions.
type NameMatcher struct {
	include []string
	exclude []string
}

// SetRules replaces the active rules.
func (m *NameMatcher) SetRules(rules []string) {
	m.include, m.exclude = m.include[:0], m.exclude[:0]
	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if neg, ok := strings.CutPrefix(rule, "!"); ok {
			m.exclude = append(m.exclude, neg)
		} else if rule != "" {
			m.include = append(m.include, rule)
		}
	}
}

// Matches reports whether item passes the rules. item may be a string or a
// fmt.Stringer; anything else never matches.
func (m *NameMatcher) Matches(item any) bool {
	var name string
	switch v := item.(type) {
	case string:
		name = v
	case fmt.Stringer:
		name = v.String()
	default:
		return false
	}
	for _, rule := range m.exclude {
		if strings.EqualFold(rule, name) {
			return false
		}
	}
	if len(m.include) == 0 {
		return len(m.exclude) > 0
	}
	for _, rule := range m.include {
		if strings.EqualFold(rule, name) {
			return true
		}
	}
	return false
}
