package events

import "strings"

// Filter selects topics by a comma-separated list of patterns.
//
// Matching rules, per pattern:
//   - "*" matches every topic
//   - a pattern ending in "*" prefix-matches the part before the asterisk
//   - anything else is an exact match
//
// An empty filter matches everything. The comma is a hard separator with
// no escaping, so a topic containing a literal comma cannot be matched
// exactly; MQTT topic conventions make this a non-issue.
type Filter struct {
	patterns []string
}

// NewFilter parses a comma-separated pattern list. Whitespace around
// patterns is trimmed and empty patterns are ignored.
func NewFilter(spec string) Filter {
	var patterns []string
	for _, p := range strings.Split(spec, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			patterns = append(patterns, p)
		}
	}
	return Filter{patterns: patterns}
}

// Matches reports whether the topic passes the filter.
func (f Filter) Matches(topic string) bool {
	if len(f.patterns) == 0 {
		return true
	}
	for _, p := range f.patterns {
		if p == "*" {
			return true
		}
		if strings.HasSuffix(p, "*") {
			if strings.HasPrefix(topic, strings.TrimSuffix(p, "*")) {
				return true
			}
			continue
		}
		if topic == p {
			return true
		}
	}
	return false
}

// String returns the filter in its comma-separated form.
func (f Filter) String() string {
	if len(f.patterns) == 0 {
		return "*"
	}
	return strings.Join(f.patterns, ",")
}
