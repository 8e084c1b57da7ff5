package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/compliance"
	"github.com/ironsheep/label-compliance/internal/ocr"
	"github.com/ironsheep/label-compliance/internal/rules"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "labelcheck "+Version) {
		t.Errorf("output = %q", out)
	}
}

func TestRulesValidate(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	if err := os.WriteFile(good, rules.DefaultYAML(), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "rules", "validate", good)
	if err != nil {
		t.Fatalf("validate good file: %v", err)
	}
	if !strings.Contains(out, "ok (version 1, 5 fields") {
		t.Errorf("output = %q", out)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("version: 1\nfields: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "rules", "validate", bad); !errors.Is(err, common.ErrConfiguration) {
		t.Errorf("validate bad file: err = %v, want configuration error", err)
	}
}

func TestRulesSchema(t *testing.T) {
	out, err := execute(t, "rules", "schema")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"matchers"`) {
		t.Errorf("schema output missing matchers: %q", out)
	}
}

func TestRulesShowPreset(t *testing.T) {
	t.Setenv("LABEL_RULES_FILE", "")
	t.Cleanup(func() { _, _ = execute(t, "rules", "show", "--preset", "default") })

	out, err := execute(t, "rules", "show", "--preset", "extended")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "FSSAI License") {
		t.Errorf("extended preset output missing FSSAI License")
	}

	if _, err := execute(t, "rules", "show", "--preset", "strict"); !errors.Is(err, common.ErrConfiguration) {
		t.Errorf("unknown preset err = %v, want configuration error", err)
	}
}

type wordsEngine struct{ words []ocr.Word }

func (e wordsEngine) Name() string { return "words" }

func (e wordsEngine) Recognize(ctx context.Context, img []byte, width, height int) ([]ocr.Word, error) {
	return e.words, nil
}

func (e wordsEngine) Info(ctx context.Context) ocr.Info { return ocr.Info{Available: true} }

func TestCheckFiles(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	var paths []string
	for _, name := range []string{"a.png", "b.png", "c.png"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, buf.Bytes(), 0o600); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(dir, "missing.png"))

	eng := wordsEngine{words: []ocr.Word{
		{Text: "Made", Confidence: 1, LineKey: "1"},
		{Text: "in", Confidence: 1, LineKey: "1"},
		{Text: "India", Confidence: 1, LineKey: "1"},
	}}
	checker, err := compliance.New(compliance.Deps{
		Rules:      rules.Default(),
		Recognizer: ocr.NewRecognizer(eng, time.Second, nil),
	})
	if err != nil {
		t.Fatal(err)
	}

	entries := checkFiles(context.Background(), checker, paths, 2, time.Minute)
	if len(entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(entries))
	}
	for i, e := range entries[:3] {
		if e.Source != paths[i] || e.Err != nil || e.Result == nil {
			t.Errorf("entry %d = %+v", i, e)
			continue
		}
		if e.Result.Score() != 20 {
			t.Errorf("entry %d score = %d, want 20", i, e.Result.Score())
		}
	}
	if entries[3].Err == nil {
		t.Error("missing file should be recorded as an error")
	}
}
