package rules

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/label-compliance/internal/common"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

//go:embed extended_rules.yaml
var extendedRulesYAML []byte

type fileMatcher struct {
	Pattern     string   `yaml:"pattern"`
	Priority    int      `yaml:"priority"`
	Specificity *float64 `yaml:"specificity"`
	Normalize   string   `yaml:"normalize"`
}

type fileField struct {
	Name     string        `yaml:"name"`
	Icon     string        `yaml:"icon"`
	Matchers []fileMatcher `yaml:"matchers"`
}

type fileRules struct {
	Version    int         `yaml:"version"`
	Thresholds *Thresholds `yaml:"thresholds"`
	Fields     []fileField `yaml:"fields"`
}

// DefaultYAML returns the built-in rule file.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultRulesYAML))
	copy(out, defaultRulesYAML)
	return out
}

// Default returns the built-in rule set.
func Default() *RuleSet {
	rs, err := Parse(defaultRulesYAML)
	if err != nil {
		panic("rules: built-in rules are invalid: " + err.Error())
	}
	return rs
}

// PresetYAML returns the rule file of a built-in preset. An empty name
// selects common.PresetDefault.
func PresetYAML(name string) ([]byte, error) {
	var src []byte
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", common.PresetDefault:
		src = defaultRulesYAML
	case common.PresetExtended:
		src = extendedRulesYAML
	default:
		return nil, common.Errorf(common.CodeConfiguration,
			"unknown rules preset %q (want %s or %s)", name, common.PresetDefault, common.PresetExtended)
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

// Preset parses a built-in preset.
func Preset(name string) (*RuleSet, error) {
	data, err := PresetYAML(name)
	if err != nil {
		return nil, err
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, common.WrapError(err, "preset "+name)
	}
	return rs, nil
}

// Load reads a rule file, or returns the built-in rules when path is empty.
func Load(path string) (*RuleSet, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and parses the rule file at path.
func LoadFile(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeConfiguration, "read rules "+path, err)
	}
	rs, err := Parse(data)
	if err != nil {
		return nil, common.WrapError(err, path)
	}
	return rs, nil
}

// Parse validates data against the rules schema, compiles every pattern and
// checks cross-field constraints. All failures are configuration errors.
func Parse(data []byte) (*RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, common.Errorf(common.CodeConfiguration, "rules file is empty")
	}
	if err := validateSchema(data); err != nil {
		return nil, common.NewAppError(common.CodeConfiguration, "invalid rules", err)
	}

	th := DefaultThresholds()
	fr := fileRules{Thresholds: &th}
	if err := yaml.Unmarshal(data, &fr); err != nil {
		return nil, common.NewAppError(common.CodeConfiguration, "invalid rules", err)
	}

	rs := &RuleSet{Version: fr.Version, Thresholds: th}
	if rs.Thresholds.Partial > rs.Thresholds.Pass {
		return nil, common.Errorf(common.CodeConfiguration,
			"partial threshold %d exceeds pass threshold %d", rs.Thresholds.Partial, rs.Thresholds.Pass)
	}

	seen := make(map[string]bool, len(fr.Fields))
	for _, f := range fr.Fields {
		if seen[f.Name] {
			return nil, common.Errorf(common.CodeConfiguration, "duplicate field %q", f.Name)
		}
		seen[f.Name] = true

		matchers := make([]Matcher, 0, len(f.Matchers))
		for i, fm := range f.Matchers {
			specificity := DefaultSpecificity
			if fm.Specificity != nil {
				specificity = *fm.Specificity
			}
			m, err := NewMatcher(fm.Priority, fm.Pattern, specificity, fm.Normalize)
			if err != nil {
				return nil, common.NewAppError(common.CodeConfiguration,
					fmt.Sprintf("field %q matcher %d", f.Name, i+1), err)
			}
			matchers = append(matchers, m)
		}
		rs.Rules = append(rs.Rules, NewFieldRule(f.Name, f.Icon, matchers...))
	}
	return rs, nil
}
