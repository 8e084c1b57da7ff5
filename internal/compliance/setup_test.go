package compliance

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/label-compliance/internal/common"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	t.Setenv("LABEL_RULES_FILE", "")
	t.Setenv("LABEL_RULES_PRESET", "")
	t.Setenv("LABEL_OCR_ENGINE", common.EngineTesseractCLI)
	return common.LoadConfig()
}

func TestFromConfig_RuleSelection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("version: 1\nfields: [{name: Batch, icon: tag, matchers: [{pattern: 'batch (\\w+)'}]}]\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		file   string
		preset string
		want   int
	}{
		{"built-in default", "", "", 5},
		{"extended preset", "", common.PresetExtended, 8},
		{"file wins over preset", path, common.PresetExtended, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.RulesFile = tt.file
			cfg.RulesPreset = tt.preset

			c, err := FromConfig(cfg, nil)
			if err != nil {
				t.Fatalf("FromConfig failed: %v", err)
			}
			if got := len(c.Rules().Rules); got != tt.want {
				t.Errorf("got %d fields, want %d", got, tt.want)
			}
		})
	}
}

func TestFromConfig_Errors(t *testing.T) {
	cfg := testConfig(t)
	cfg.RulesPreset = "strict"
	if _, err := FromConfig(cfg, nil); !errors.Is(err, common.ErrConfiguration) {
		t.Errorf("unknown preset err = %v, want configuration error", err)
	}

	cfg = testConfig(t)
	cfg.RulesFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := FromConfig(cfg, nil); !errors.Is(err, common.ErrConfiguration) {
		t.Errorf("missing rules file err = %v, want configuration error", err)
	}
}

func TestRulesSource(t *testing.T) {
	tests := []struct {
		cfg  common.Config
		want string
	}{
		{common.Config{}, "built-in default"},
		{common.Config{RulesPreset: common.PresetExtended}, "built-in extended"},
		{common.Config{RulesFile: "/etc/rules.yaml", RulesPreset: common.PresetExtended}, "/etc/rules.yaml"},
	}
	for _, tt := range tests {
		if got := rulesSource(&tt.cfg); got != tt.want {
			t.Errorf("rulesSource(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}
