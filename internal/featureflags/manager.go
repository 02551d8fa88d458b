// Package featureflags evaluates rollout flags read from the FEATURE_FLAGS setting.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"
)

// SearchVectorRefresh gates re-indexing a post's search vector after its content changes.
const SearchVectorRefresh = "search_vector_refresh"

// rule is one parsed flag. percent is 0..100; values that parse as neither a switch
// nor a percentage evaluate to off.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) rule {
	r := rule{raw: value}
	switch value {
	case "on", "true", "1":
		r.percent = 100
	case "off", "false", "0":
	default:
		if pct, err := strconv.Atoi(strings.TrimSuffix(value, "%")); err == nil && strings.HasSuffix(value, "%") {
			r.percent = min(max(pct, 0), 100)
		}
	}
	return r
}

// Manager evaluates flags from a comma separated key=value list, for example
// "search_vector_refresh=on,featured_feed=25%". Percentages roll out by user id.
type Manager struct {
	rules map[string]rule
}

// NewManager parses raw, skipping malformed pairs.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		key, value = normalize(key), normalize(value)
		if !ok || key == "" || value == "" {
			continue
		}
		rules[key] = parseRule(value)
	}
	return &Manager{rules: rules}
}

// Enabled reports whether name is on for userID. Partial rollouts need a non-zero user.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.rules[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0 || userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// EnabledOr is Enabled for configured flags and fallback for flags the list does not mention.
func (m *Manager) EnabledOr(name string, userID uint, fallback bool) bool {
	if m == nil {
		return fallback
	}
	if _, ok := m.rules[normalize(name)]; !ok {
		return fallback
	}
	return m.Enabled(name, userID)
}

// Raw returns the configured values by flag name.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.rules))
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// rolloutBucket places a user in 0..99, stable per flag.
func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
