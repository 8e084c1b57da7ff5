package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	RulesFile   string
	RulesPreset string // "default" | "extended"; used when RulesFile is empty
	OCR         OCRConfig
	Document    DocumentConfig
	Image       ImageConfig
	Log         LogConfig
}

// OCRConfig holds text recognition configuration
type OCRConfig struct {
	Engine       string // "gosseract" | "tesseract-cli"
	Language     string
	PSM          int
	Modes        []int // page segmentation modes tried per page, best kept
	TessdataDir  string
	TesseractBin string
	Timeout      time.Duration
}

// DocumentConfig holds PDF rasterization configuration
type DocumentConfig struct {
	PdftoppmBin string
	DPI         int
	MaxPages    int
	Timeout     time.Duration
}

// ImageConfig holds image normalization configuration
type ImageConfig struct {
	MaxDimension int
	MinDimension int
	MaxBytes     int
	Grayscale    string // "luma" | "lightness"
	Upscale      bool
	Contrast     bool
	Morphology   bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

const (
	EngineGosseract    = "gosseract"
	EngineTesseractCLI = "tesseract-cli"
)

const (
	PresetDefault  = "default"
	PresetExtended = "extended"
)

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are not an error; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return NewAppError(CodeConfiguration, "load "+f, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		RulesFile:   getEnv("LABEL_RULES_FILE", ""),
		RulesPreset: getEnv("LABEL_RULES_PRESET", PresetDefault),
		OCR: OCRConfig{
			Engine:       getEnv("LABEL_OCR_ENGINE", EngineGosseract),
			Language:     getEnv("LABEL_OCR_LANG", "eng"),
			PSM:          getEnvAsInt("LABEL_OCR_PSM", 6),
			Modes:        getEnvAsIntList("LABEL_OCR_PSM_MODES", []int{6, 4, 11}),
			TessdataDir:  getEnv("TESSDATA_PREFIX", ""),
			TesseractBin: getEnv("LABEL_TESSERACT_BIN", "tesseract"),
			Timeout:      getEnvAsDuration("LABEL_RECOGNITION_TIMEOUT", 60*time.Second),
		},
		Document: DocumentConfig{
			PdftoppmBin: getEnv("LABEL_PDFTOPPM_BIN", "pdftoppm"),
			DPI:         getEnvAsInt("LABEL_DPI", 300),
			MaxPages:    getEnvAsInt("LABEL_MAX_PAGES", 0),
			Timeout:     getEnvAsDuration("LABEL_RASTERIZATION_TIMEOUT", 60*time.Second),
		},
		Image: ImageConfig{
			MaxDimension: getEnvAsInt("LABEL_MAX_DIMENSION", 10000),
			MinDimension: getEnvAsInt("LABEL_MIN_DIMENSION", 50),
			MaxBytes:     getEnvAsInt("LABEL_MAX_IMAGE_BYTES", 50<<20),
			Grayscale:    getEnv("LABEL_GRAYSCALE", "luma"),
			Upscale:      getEnvAsBool("LABEL_UPSCALE", true),
			Contrast:     getEnvAsBool("LABEL_CONTRAST", true),
			Morphology:   getEnvAsBool("LABEL_MORPHOLOGY", true),
		},
		Log: LogConfig{
			Level:  getEnv("LABEL_LOG_LEVEL", "info"),
			Format: getEnv("LABEL_LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsIntList parses a comma-separated list. Any bad element discards
// the whole value.
func getEnvAsIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, n)
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.OCR.Engine {
	case EngineGosseract, EngineTesseractCLI:
	default:
		return Errorf(CodeConfiguration, "LABEL_OCR_ENGINE must be %q or %q, got %q",
			EngineGosseract, EngineTesseractCLI, c.OCR.Engine)
	}
	if c.OCR.Language == "" {
		return Errorf(CodeConfiguration, "LABEL_OCR_LANG is required")
	}
	if c.OCR.PSM < 0 || c.OCR.PSM > 13 {
		return Errorf(CodeConfiguration, "LABEL_OCR_PSM must be in 0..13, got %d", c.OCR.PSM)
	}
	for _, m := range c.OCR.Modes {
		if m < 0 || m > 13 {
			return Errorf(CodeConfiguration, "LABEL_OCR_PSM_MODES entries must be in 0..13, got %d", m)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.RulesPreset)) {
	case PresetDefault, PresetExtended, "":
	default:
		return Errorf(CodeConfiguration, "LABEL_RULES_PRESET must be %q or %q, got %q",
			PresetDefault, PresetExtended, c.RulesPreset)
	}
	if c.Document.DPI < 72 || c.Document.DPI > 1200 {
		return Errorf(CodeConfiguration, "LABEL_DPI must be in 72..1200, got %d", c.Document.DPI)
	}
	if c.Document.MaxPages < 0 {
		return Errorf(CodeConfiguration, "LABEL_MAX_PAGES must not be negative")
	}
	if c.Image.MaxDimension <= 0 {
		return Errorf(CodeConfiguration, "LABEL_MAX_DIMENSION must be positive")
	}
	if c.Image.MinDimension < 0 || c.Image.MinDimension > c.Image.MaxDimension {
		return Errorf(CodeConfiguration, "LABEL_MIN_DIMENSION must be in 0..%d, got %d",
			c.Image.MaxDimension, c.Image.MinDimension)
	}
	if c.Image.MaxBytes < 0 {
		return Errorf(CodeConfiguration, "LABEL_MAX_IMAGE_BYTES must not be negative")
	}
	switch strings.ToLower(c.Image.Grayscale) {
	case "luma", "lightness":
	default:
		return Errorf(CodeConfiguration, "LABEL_GRAYSCALE must be luma or lightness, got %q", c.Image.Grayscale)
	}
	if c.OCR.Timeout <= 0 || c.Document.Timeout <= 0 {
		return Errorf(CodeConfiguration, "timeouts must be positive")
	}
	return nil
}
