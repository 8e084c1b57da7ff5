package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/runner"
)

const cliBackend = "tesseract-cli"

// TSV columns emitted by `tesseract ... tsv`.
const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

// tsvWordLevel is the TSV level of word rows.
const tsvWordLevel = "5"

// CLIEngine runs the tesseract binary, feeding the page on stdin and reading
// word boxes from its TSV output.
type CLIEngine struct {
	Bin         string
	Language    string
	PSM         int
	TessdataDir string
	Runner      runner.Runner
}

// NewCLIEngine builds the exec-based engine from the OCR config.
func NewCLIEngine(cfg common.OCRConfig, r runner.Runner) *CLIEngine {
	if r == nil {
		r = runner.Exec{}
	}
	bin := cfg.TesseractBin
	if bin == "" {
		bin = "tesseract"
	}
	return &CLIEngine{
		Bin:         bin,
		Language:    cfg.Language,
		PSM:         cfg.PSM,
		TessdataDir: cfg.TessdataDir,
		Runner:      r,
	}
}

func (e *CLIEngine) Name() string { return cliBackend }

func (e *CLIEngine) args(psm int) []string {
	args := []string{"stdin", "stdout"}
	if psm > 0 {
		args = append(args, "--psm", strconv.Itoa(psm))
	}
	if e.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.TessdataDir)
	}
	if e.Language != "" {
		args = append(args, "-l", e.Language)
	}
	return append(args, "tsv")
}

// Recognize pipes the PNG page through tesseract and parses the TSV result.
func (e *CLIEngine) Recognize(ctx context.Context, img []byte, width, height int) ([]Word, error) {
	return e.RecognizeMode(ctx, img, width, height, e.PSM)
}

// RecognizeMode is Recognize with an explicit --psm value.
func (e *CLIEngine) RecognizeMode(ctx context.Context, img []byte, width, height, psm int) ([]Word, error) {
	stdout, stderr, err := e.Runner.Run(ctx, bytes.NewReader(img), e.Bin, e.args(psm)...)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case runner.IsNotFound(err):
			return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, e.Bin, err)
		case isInitFailure(errors.New(string(stderr))):
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, strings.TrimSpace(string(stderr)))
		default:
			return nil, fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(string(stderr)))
		}
	}
	return ParseTSV(stdout)
}

// ParseTSV extracts word rows (level 5) from tesseract TSV output.
// Rows with confidence -1 and rows with empty text are skipped. The line key
// combines page, block, paragraph and line numbers.
func ParseTSV(data []byte) ([]Word, error) {
	var words []Word
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		row := strings.TrimRight(sc.Text(), "\r")
		if row == "" || strings.HasPrefix(row, "level\t") {
			continue
		}
		cols := strings.SplitN(row, "\t", tsvColumns)
		if len(cols) < tsvColumns-1 {
			return nil, fmt.Errorf("tsv line %d: expected %d columns, got %d", lineNo, tsvColumns, len(cols))
		}
		if cols[tsvLevel] != tsvWordLevel || len(cols) < tsvColumns {
			continue
		}
		text := strings.TrimSpace(cols[tsvText])
		if text == "" {
			continue
		}
		conf, err := strconv.ParseFloat(cols[tsvConf], 64)
		if err != nil {
			return nil, fmt.Errorf("tsv line %d: bad confidence %q: %w", lineNo, cols[tsvConf], err)
		}
		if conf < 0 {
			continue
		}

		nums := make([]int, 4)
		for i, c := range []int{tsvLeft, tsvTop, tsvWidth, tsvHeight} {
			n, err := strconv.Atoi(cols[c])
			if err != nil {
				return nil, fmt.Errorf("tsv line %d: bad box value %q: %w", lineNo, cols[c], err)
			}
			nums[i] = n
		}

		words = append(words, Word{
			Text:       text,
			Confidence: conf / 100.0,
			Box: Bounds{
				X1: nums[0],
				Y1: nums[1],
				X2: nums[0] + nums[2],
				Y2: nums[1] + nums[3],
			},
			LineKey: strings.Join([]string{cols[tsvPage], cols[tsvBlock], cols[tsvPar], cols[tsvLine]}, "."),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}
	return words, nil
}

// Info runs `tesseract --version` and `--list-langs`.
func (e *CLIEngine) Info(ctx context.Context) Info {
	info := Info{Backend: cliBackend, Language: e.Language, TessdataPath: e.TessdataDir}

	if loc, ok := e.Runner.(runner.Locator); ok {
		path, err := loc.Lookup(e.Bin)
		if err != nil {
			info.Error = fmt.Sprintf("%s not found: %v", e.Bin, err)
			return info
		}
		info.BinaryPath = path
	}

	stdout, stderr, err := e.Runner.Run(ctx, nil, e.Bin, "--version")
	if err != nil {
		info.Error = err.Error()
		return info
	}
	// Older releases print the version banner on stderr.
	banner := string(stdout)
	if strings.TrimSpace(banner) == "" {
		banner = string(stderr)
	}
	if first, _, _ := strings.Cut(strings.TrimSpace(banner), "\n"); first != "" {
		info.Version = strings.TrimSpace(first)
	}

	args := []string{"--list-langs"}
	if e.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.TessdataDir)
	}
	langs, _, err := e.Runner.Run(ctx, nil, e.Bin, args...)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	installed := make(map[string]bool)
	for _, l := range strings.Split(string(langs), "\n") {
		installed[strings.TrimSpace(l)] = true
	}
	for _, want := range strings.Split(e.Language, "+") {
		if !installed[want] {
			info.Error = fmt.Sprintf("language %q not installed", want)
			return info
		}
	}
	info.Available = true
	return info
}
