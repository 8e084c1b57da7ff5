package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/compliance"
)

// Entry is the outcome of checking one input. Exactly one of Result and Err
// is set.
type Entry struct {
	Source string
	Result *compliance.Result
	Err    error
}

type jsonLine struct {
	Source string             `json:"source"`
	Result *compliance.Result `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
	Code   common.Code        `json:"code,omitempty"`
}

// WriteJSONL writes one JSON object per entry, in order.
func WriteJSONL(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, e := range entries {
		line := jsonLine{Source: e.Source, Result: e.Result}
		if e.Err != nil {
			line.Error = e.Err.Error()
			line.Code = common.CodeOf(e.Err)
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("encode %s: %w", e.Source, err)
		}
	}
	return nil
}

const (
	checksSheet = "Checks"
	textSheet   = "Text"
)

// XLSX renders entries as a workbook: a "Checks" sheet with one row per input
// and one column per field, and a "Text" sheet with the recognized text.
func XLSX(entries []Entry, fieldNames []string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", checksSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(textSheet); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(checksSheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	headers := []string{"Source", "Status", "Score", "Synthetic", "Pages"}
	headers = append(headers, fieldNames...)
	headers = append(headers, "Run ID", "Error")
	if err := writeRow(f, checksSheet, 1, toAny(headers)); err != nil {
		return nil, err
	}
	if err := writeRow(f, textSheet, 1, []any{"Source", "Run ID", "Extracted Text"}); err != nil {
		return nil, err
	}

	for i, e := range entries {
		row := i + 2
		if e.Err != nil || e.Result == nil {
			vals := make([]any, len(headers))
			vals[0] = e.Source
			vals[1] = "error"
			if e.Err != nil {
				vals[len(vals)-1] = e.Err.Error()
			}
			if err := writeRow(f, checksSheet, row, vals); err != nil {
				return nil, err
			}
			continue
		}

		res := e.Result
		vals := []any{e.Source, string(res.Status()), res.Score(), res.Synthetic(), res.Pages()}
		byName := make(map[string]string)
		for _, fld := range res.Fields() {
			if fld.Detected {
				byName[fld.Name] = fld.ValueOr("") + " (" + strconv.FormatFloat(fld.Confidence, 'f', 2, 64) + ")"
			}
		}
		for _, name := range fieldNames {
			vals = append(vals, byName[name])
		}
		vals = append(vals, res.RunID(), "")
		if err := writeRow(f, checksSheet, row, vals); err != nil {
			return nil, err
		}
		if err := writeRow(f, textSheet, row, []any{e.Source, res.RunID(), res.ExtractedText()}); err != nil {
			return nil, err
		}
	}

	last, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return nil, fmt.Errorf("xlsx columns: %w", err)
	}
	widths := []struct {
		sheet, from, to string
		width           float64
	}{
		{checksSheet, "A", "A", 40},
		{checksSheet, "F", last, 22},
		{textSheet, "A", "B", 38},
		{textSheet, "C", "C", 100},
	}
	for _, w := range widths {
		if err := f.SetColWidth(w.sheet, w.from, w.to, w.width); err != nil {
			return nil, fmt.Errorf("xlsx column width: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteXLSX writes the workbook produced by XLSX to w.
func WriteXLSX(w io.Writer, entries []Entry, fieldNames []string) error {
	data, err := XLSX(entries, fieldNames)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

func writeRow(f *excelize.File, sheet string, row int, vals []any) error {
	for col, v := range vals {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("xlsx %s row %d: %w", sheet, row, err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("xlsx %s %s: %w", sheet, cell, err)
		}
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
