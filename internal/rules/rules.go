package rules

import (
	"fmt"
	"regexp"
	"sort"
)

// DefaultSpecificity is used for matchers that do not declare one.
const DefaultSpecificity = 1.0

const (
	valueGroup   = "value"
	excludeGroup = "exclude"
)

// Thresholds map a score to a status. Scores at or above Pass pass; scores
// at or above Partial (and below Pass) are partial; anything lower fails.
type Thresholds struct {
	Pass    int `json:"pass" yaml:"pass"`
	Partial int `json:"partial" yaml:"partial"`
}

// DefaultThresholds returns the 60/40 split.
func DefaultThresholds() Thresholds {
	return Thresholds{Pass: 60, Partial: 40}
}

// Matcher is one compiled pattern of a field.
type Matcher struct {
	Priority    int
	Pattern     *regexp.Regexp
	Specificity float64
	Normalizer  string

	normalize  NormalizeFunc
	valueIdx   int
	excludeIdx int
}

// NewMatcher compiles pattern case-insensitive and multi-line and binds the
// named normalizer. An empty normalizer selects "identity".
func NewMatcher(priority int, pattern string, specificity float64, normalizer string) (Matcher, error) {
	if normalizer == "" {
		normalizer = NormalizeIdentity
	}
	fn, ok := normalizers[normalizer]
	if !ok {
		return Matcher{}, fmt.Errorf("unknown normalizer %q", normalizer)
	}
	if specificity <= 0 || specificity > 1 {
		return Matcher{}, fmt.Errorf("specificity %v outside (0, 1]", specificity)
	}
	re, err := regexp.Compile("(?im)" + pattern)
	if err != nil {
		return Matcher{}, fmt.Errorf("invalid pattern: %w", err)
	}

	idx := 0
	if i := re.SubexpIndex(valueGroup); i > 0 {
		idx = i
	} else if re.NumSubexp() > 0 {
		idx = 1
	}
	return Matcher{
		Priority:    priority,
		Pattern:     re,
		Specificity: specificity,
		Normalizer:  normalizer,
		normalize:   fn,
		valueIdx:    idx,
		excludeIdx:  re.SubexpIndex(excludeGroup),
	}, nil
}

// Excluded reports whether the named group "exclude" took part in the
// match, which vetoes it.
func (m Matcher) Excluded(loc []int) bool {
	i := m.excludeIdx
	return i > 0 && 2*i+1 < len(loc) && loc[2*i] >= 0
}

// Capture returns the value span of a submatch index slice produced by
// Pattern.FindAllStringSubmatchIndex: the named group "value", else group 1,
// else the whole match. ok is false when that group did not participate.
func (m Matcher) Capture(loc []int) (start, end int, ok bool) {
	i := m.valueIdx
	if 2*i+1 >= len(loc) || loc[2*i] < 0 {
		return 0, 0, false
	}
	return loc[2*i], loc[2*i+1], true
}

// Normalize applies the matcher's normalizer. ok is false when the raw
// capture is not an acceptable value.
func (m Matcher) Normalize(raw string) (string, bool) {
	if m.normalize == nil {
		return normalizeIdentity(raw)
	}
	return m.normalize(raw)
}

// FieldRule describes one mandatory declaration.
type FieldRule struct {
	Name string
	// Icon is a stable presentation key such as "rupee"; rendering is up to
	// the consumer.
	Icon     string
	Matchers []Matcher
}

// NewFieldRule orders matchers by descending priority, keeping declaration
// order among equal priorities.
func NewFieldRule(name, icon string, matchers ...Matcher) FieldRule {
	ms := make([]Matcher, len(matchers))
	copy(ms, matchers)
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Priority > ms[j].Priority })
	return FieldRule{Name: name, Icon: icon, Matchers: ms}
}

// RuleSet is the loaded, immutable field configuration. It is shared by all
// checks and must not be modified after loading.
type RuleSet struct {
	Version    int
	Thresholds Thresholds
	Rules      []FieldRule
}

// Names lists field names in configuration order.
func (rs *RuleSet) Names() []string {
	names := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		names[i] = r.Name
	}
	return names
}
