package compliance

import (
	"log/slog"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/document"
	"github.com/ironsheep/label-compliance/internal/imaging"
	"github.com/ironsheep/label-compliance/internal/ocr"
	"github.com/ironsheep/label-compliance/internal/rules"
	"github.com/ironsheep/label-compliance/internal/runner"
)

// FromConfig wires a Checker from application configuration. Rule loading
// errors are fatal configuration errors.
func FromConfig(cfg *common.Config, logger *slog.Logger) (*Checker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rs, err := loadRules(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("rules loaded",
		"source", rulesSource(cfg),
		"fields", len(rs.Rules),
		"pass", rs.Thresholds.Pass,
		"partial", rs.Thresholds.Partial)

	exec := runner.Exec{Logger: logger}
	engine, err := ocr.NewEngine(cfg.OCR, exec)
	if err != nil {
		return nil, err
	}

	return New(Deps{
		Rules:        rs,
		Normalizer:   imaging.DefaultNormalizer(imaging.OptionsFromConfig(cfg.Image), logger),
		Rasterizer:   document.NewRasterizer(cfg.Document, cfg.Image.MaxDimension, exec, logger),
		Recognizer:   ocr.NewRecognizer(engine, cfg.OCR.Timeout, logger, ocr.WithModes(cfg.OCR.Modes...)),
		MaxDimension: cfg.Image.MaxDimension,
		MinDimension: cfg.Image.MinDimension,
		MaxBytes:     cfg.Image.MaxBytes,
		Logger:       logger,
	})
}

// loadRules prefers an explicit rules file over the built-in preset.
func loadRules(cfg *common.Config) (*rules.RuleSet, error) {
	if cfg.RulesFile != "" {
		return rules.Load(cfg.RulesFile)
	}
	return rules.Preset(cfg.RulesPreset)
}

func rulesSource(cfg *common.Config) string {
	if cfg.RulesFile != "" {
		return cfg.RulesFile
	}
	if cfg.RulesPreset == "" {
		return "built-in " + common.PresetDefault
	}
	return "built-in " + cfg.RulesPreset
}
