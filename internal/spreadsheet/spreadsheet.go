// Package spreadsheet writes multi-sheet xlsx workbooks and reads the first
// sheet of an uploaded workbook as header-keyed records.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MaxImportRows = 1000

	defaultSheet = "Sheet1"
)

var (
	ErrNoSheets     = errors.New("workbook has no sheets")
	ErrNoData       = errors.New("workbook has no data rows")
	ErrTooManyRows  = fmt.Errorf("workbook exceeds %d data rows", MaxImportRows)
	ErrInvalidSheet = errors.New("sheet name is required")
)

// Sheet is one named table. Rows hold cell values in header order; numbers
// should be passed as numeric types so they stay numeric in the workbook.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]interface{}
}

// Write renders the sheets in order into an xlsx document.
func Write(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range sheets {
		if strings.TrimSpace(sheet.Name) == "" {
			return nil, ErrInvalidSheet
		}
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, sheet.Name); err != nil {
				return nil, fmt.Errorf("rename sheet %q: %w", sheet.Name, err)
			}
		} else if _, err := f.NewSheet(sheet.Name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", sheet.Name, err)
		}
		if err := writeSheet(f, sheet, headerStyle); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet Sheet, headerStyle int) error {
	for col, header := range sheet.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet.Name, cell, header); err != nil {
			return fmt.Errorf("write header %q: %w", header, err)
		}
		name, _ := excelize.ColumnNumberToName(col + 1)
		width := float64(len(header) + 4)
		if width < 12 {
			width = 12
		}
		f.SetColWidth(sheet.Name, name, name, width)
	}
	if len(sheet.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(sheet.Headers), 1)
		if err := f.SetCellStyle(sheet.Name, "A1", last, headerStyle); err != nil {
			return err
		}
	}

	for r, row := range sheet.Rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet.Name, cell, value); err != nil {
				return fmt.Errorf("write %s!%s: %w", sheet.Name, cell, err)
			}
		}
	}
	return nil
}

// ReadFirstSheet parses the first sheet: the first row names the columns and
// every following non-empty row becomes a record keyed by column name.
func ReadFirstSheet(r io.Reader) ([]map[string]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, ErrNoSheets
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoData
	}
	if len(rows)-1 > MaxImportRows {
		return nil, ErrTooManyRows
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]map[string]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(map[string]string, len(headers))
		empty := true
		for i, header := range headers {
			if header == "" || i >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[i])
			if v != "" {
				empty = false
			}
			record[header] = v
		}
		if !empty {
			records = append(records, record)
		}
	}
	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}
