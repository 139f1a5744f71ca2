// Package featureflags evaluates the FEATURE_FLAGS setting, a comma-separated list of
// name=value pairs such as "recommendations=on,marketplace_verification=25%".
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Flags consulted by the services.
const (
	Recommendations         = "recommendations"
	MarketplaceVerification = "marketplace_verification"
)

// Known lists the flags the services read and their value when unset.
var Known = map[string]bool{
	Recommendations:         true,
	MarketplaceVerification: true,
}

type ruleKind int

const (
	ruleOff ruleKind = iota
	ruleOn
	rulePercent
)

type rule struct {
	kind ruleKind
	pct  int
	raw  string
}

func parseRule(value string) (rule, error) {
	value = normalize(value)
	switch value {
	case "on", "true", "1":
		return rule{kind: ruleOn, raw: value}, nil
	case "off", "false", "0":
		return rule{kind: ruleOff, raw: value}, nil
	}
	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil || pct < 0 || pct > 100 {
			return rule{}, fmt.Errorf("rollout %q must be 0%% to 100%%", value)
		}
		return rule{kind: rulePercent, pct: pct, raw: value}, nil
	}
	return rule{}, fmt.Errorf("unsupported flag value %q", value)
}

func (r rule) eval(name string, userID uint) bool {
	switch r.kind {
	case ruleOn:
		return true
	case rulePercent:
		if r.pct >= 100 {
			return true
		}
		// Partial rollouts need a stable identity.
		if r.pct == 0 || userID == 0 {
			return false
		}
		return rolloutBucket(name, userID) < r.pct
	}
	return false
}

// Manager holds parsed flag rules. Admins can override a rule at runtime with Set; the
// override lasts until the process restarts.
type Manager struct {
	mu    sync.RWMutex
	rules map[string]rule
}

// NewManager parses raw. Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	rules := make(map[string]rule)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = normalize(key)
		r, err := parseRule(value)
		if key == "" || err != nil {
			continue
		}
		rules[key] = r
	}
	return &Manager{rules: rules}
}

func (m *Manager) lookup(name string) (rule, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rules[normalize(name)]
	return r, ok
}

// Enabled reports whether name is on for userID. Unset flags are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.lookup(name)
	return ok && r.eval(normalize(name), userID)
}

// EnabledOr is Enabled for configured flags and def for flags that were never set.
func (m *Manager) EnabledOr(name string, userID uint, def bool) bool {
	if m == nil {
		return def
	}
	r, ok := m.lookup(name)
	if !ok {
		return def
	}
	return r.eval(normalize(name), userID)
}

// Set replaces the rule for name.
func (m *Manager) Set(name, value string) error {
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("flag name is required")
	}
	r, err := parseRule(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rules[key] = r
	m.mu.Unlock()
	return nil
}

// Raw returns the configured values as written.
func (m *Manager) Raw() map[string]string {
	out := map[string]string{}
	if m == nil {
		return out
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for k, r := range m.rules {
		out[k] = r.raw
	}
	return out
}

// Snapshot evaluates every configured flag and every Known flag for userID.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(Known))
	for name, def := range Known {
		out[name] = m.EnabledOr(name, userID, def)
	}
	for _, name := range m.names() {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func (m *Manager) names() []string {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.rules))
	for k := range m.rules {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", name, userID)
	return int(h.Sum32() % 100)
}
