// Package ingest reads the tables the core is fed from: normalized well lists,
// rule tables and case sheets. Header spellings are mapped onto one canonical
// set of columns here, so nothing downstream sees the aliases.
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/carbocation/pfx"
	"github.com/carbocation/qpcr"
	"github.com/extrame/xls"
	"github.com/gocarina/gocsv"
)

// Compound document signature that .xls workbooks start with.
var oleSignature = []byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}

// IsXLS reports whether data looks like a legacy Excel workbook.
func IsXLS(data []byte) bool {
	return bytes.HasPrefix(data, oleSignature)
}

// records splits data into rows: the first sheet of an .xls workbook, or
// delimited text with the delimiter detected from the first lines.
func records(data []byte) ([][]string, error) {
	if IsXLS(data) {
		return xlsRecords(data)
	}

	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = qpcr.DetermineDelimiterBytes(data)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	return rows, nil
}

func xlsRecords(data []byte) ([][]string, error) {
	spreadsheet, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, pfx.Err(err)
	}

	if spreadsheet.NumSheets() < 1 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	sheet := spreadsheet.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("sheet 0 was nil")
	}

	var out [][]string
	for rowID := 0; rowID <= int(sheet.MaxRow); rowID++ {
		row := sheet.Row(rowID)
		if row == nil {
			continue
		}

		var cells []string
		for colID := 0; colID <= row.LastCol(); colID++ {
			cells = append(cells, row.Col(colID))
		}

		// Trailing blank cells
		for len(cells) > 0 && strings.TrimSpace(cells[len(cells)-1]) == "" {
			cells = cells[:len(cells)-1]
		}
		out = append(out, cells)
	}

	return out, nil
}

// replayReader hands already-split rows to gocsv.
type replayReader struct {
	rows [][]string
	i    int
}

func (r *replayReader) Read() ([]string, error) {
	if r.i >= len(r.rows) {
		return nil, io.EOF
	}
	r.i++
	return r.rows[r.i-1], nil
}

func (r *replayReader) ReadAll() ([][]string, error) {
	rest := r.rows[r.i:]
	r.i = len(r.rows)
	return rest, nil
}

// unmarshal finds the header row (instrument exports often carry a preamble
// of run metadata above it), renames its columns per layout and decodes the
// rows below it into out, a pointer to a slice of structs tagged with the
// canonical column names. Blank rows are dropped.
func unmarshal(data []byte, layout Layout, out interface{}) error {
	rows, err := records(data)
	if err != nil {
		return err
	}

	headerAt := -1
	var header []string
	var firstErr error
	for i, row := range rows {
		if isBlank(row) {
			continue
		}
		h, err := layout.canonicalHeader(row)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		headerAt, header = i, h
		break
	}

	if headerAt < 0 {
		if firstErr == nil {
			firstErr = fmt.Errorf("no header row found")
		}
		return pfx.Err(firstErr)
	}

	table := [][]string{header}
	for _, row := range rows[headerAt+1:] {
		if isBlank(row) {
			continue
		}
		// Pad short rows so every record has a value for every column
		for len(row) < len(header) {
			row = append(row, "")
		}
		table = append(table, row[:len(header)])
	}

	if len(table) == 1 {
		return nil
	}

	return pfx.Err(gocsv.UnmarshalCSV(&replayReader{rows: table}, out))
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
