package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ironsheep/label-compliance/internal/common"
)

// minimalPDF builds a valid PDF with the given number of blank pages and a
// correct cross-reference table.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 200] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// fakePdftoppm writes a small PNG where pdftoppm would, or fails for the
// pages listed in failPages.
type fakePdftoppm struct {
	failPages map[string]bool
	err       error
	block     bool
	calls     [][]string
}

func (f *fakePdftoppm) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, args)
	if f.block {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	page := argAfter(args, "-f")
	if f.failPages[page] {
		return nil, []byte("Syntax Error: bad page"), errors.New("exit status 1")
	}

	prefix := args[len(args)-1]
	img := image.NewGray(image.Rect(0, 0, 30, 20))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 0})
	out, err := os.Create(prefix + ".png")
	if err != nil {
		return nil, nil, err
	}
	defer out.Close()
	return nil, nil, png.Encode(out, img)
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newTestRasterizer(r *fakePdftoppm, cfg common.DocumentConfig) *Rasterizer {
	return NewRasterizer(cfg, 0, r, nil)
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(minimalPDF(3))
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	if n != 3 {
		t.Errorf("PageCount = %d, want 3", n)
	}
}

func TestPageCount_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("PK\x03\x04 zip file")},
		{"truncated", minimalPDF(1)[:40]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PageCount(tt.data)
			if !errors.Is(err, common.ErrUnsupportedDocumentFormat) {
				t.Errorf("err = %v, want ErrUnsupportedDocumentFormat", err)
			}
		})
	}
}

func TestPages_RendersLazily(t *testing.T) {
	r := &fakePdftoppm{}
	rz := newTestRasterizer(r, common.DocumentConfig{DPI: 150})

	pages, err := rz.Open(context.Background(), minimalPDF(2))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer pages.Close()

	if pages.Count() != 2 {
		t.Fatalf("Count = %d, want 2", pages.Count())
	}
	if len(r.calls) != 0 {
		t.Errorf("Open rendered %d pages eagerly", len(r.calls))
	}

	for want := 1; want <= 2; want++ {
		p, err := pages.Next(context.Background())
		if err != nil {
			t.Fatalf("Next page %d: %v", want, err)
		}
		if p.Number != want {
			t.Errorf("Number = %d, want %d", p.Number, want)
		}
		if p.Raster.Width != 30 || p.Raster.Height != 20 {
			t.Errorf("raster size = %dx%d", p.Raster.Width, p.Raster.Height)
		}
		if len(r.calls) != want {
			t.Errorf("after page %d renderer called %d times", want, len(r.calls))
		}
	}

	if _, err := pages.Next(context.Background()); err != io.EOF {
		t.Errorf("Next after last page = %v, want io.EOF", err)
	}

	args := r.calls[1]
	if argAfter(args, "-r") != "150" || argAfter(args, "-f") != "2" || argAfter(args, "-l") != "2" {
		t.Errorf("unexpected pdftoppm args %v", args)
	}
	if !contains(args, "-singlefile") || !contains(args, "-png") {
		t.Errorf("pdftoppm args missing flags: %v", args)
	}

	leftovers, _ := filepath.Glob(filepath.Join(pages.dir, "*.png"))
	if len(leftovers) != 0 {
		t.Errorf("page images not deleted: %v", leftovers)
	}
}

func TestPages_CloseRemovesDir(t *testing.T) {
	pages, err := newTestRasterizer(&fakePdftoppm{}, common.DocumentConfig{}).Open(context.Background(), minimalPDF(1))
	if err != nil {
		t.Fatal(err)
	}
	dir := pages.dir
	if err := pages.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("work dir still exists: %v", err)
	}
	if err := pages.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if _, err := pages.Next(context.Background()); err != io.EOF {
		t.Errorf("Next after Close = %v, want io.EOF", err)
	}
}

func TestPages_MaxPages(t *testing.T) {
	pages, err := newTestRasterizer(&fakePdftoppm{}, common.DocumentConfig{MaxPages: 2}).Open(context.Background(), minimalPDF(5))
	if err != nil {
		t.Fatal(err)
	}
	defer pages.Close()
	if pages.Count() != 2 || pages.Total() != 5 {
		t.Errorf("Count/Total = %d/%d, want 2/5", pages.Count(), pages.Total())
	}
}

func TestPages_PageFailureIsSkippable(t *testing.T) {
	r := &fakePdftoppm{failPages: map[string]bool{"1": true}}
	pages, err := newTestRasterizer(r, common.DocumentConfig{}).Open(context.Background(), minimalPDF(2))
	if err != nil {
		t.Fatal(err)
	}
	defer pages.Close()

	_, err = pages.Next(context.Background())
	var pe *PageError
	if !errors.As(err, &pe) || pe.Number != 1 {
		t.Fatalf("err = %v, want *PageError for page 1", err)
	}
	p, err := pages.Next(context.Background())
	if err != nil || p.Number != 2 {
		t.Errorf("page 2 after failure = %v, %v", p, err)
	}
}

func TestPages_FatalErrors(t *testing.T) {
	tests := []struct {
		name    string
		runner  *fakePdftoppm
		timeout time.Duration
		want    error
	}{
		{"renderer missing", &fakePdftoppm{err: exec.ErrNotFound}, time.Second, common.ErrUnsupportedDocumentFormat},
		{"render timeout", &fakePdftoppm{block: true}, 20 * time.Millisecond, common.ErrRasterizationTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rz := newTestRasterizer(tt.runner, common.DocumentConfig{Timeout: tt.timeout})
			pages, err := rz.Open(context.Background(), minimalPDF(1))
			if err != nil {
				t.Fatal(err)
			}
			defer pages.Close()

			_, err = pages.Next(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			var pe *PageError
			if errors.As(err, &pe) {
				t.Error("fatal error must not be reported as a page error")
			}
		})
	}
}

func TestPages_CallerCancel(t *testing.T) {
	pages, err := newTestRasterizer(&fakePdftoppm{}, common.DocumentConfig{}).Open(context.Background(), minimalPDF(1))
	if err != nil {
		t.Fatal(err)
	}
	defer pages.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := pages.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
