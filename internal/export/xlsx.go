package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet (and Google Sheets tab prefix) holding the export.
const SheetName = "Portfolio"

// WriteXLSX writes doc as a single-sheet workbook: the preamble, a blank row,
// then the table with a bold, frozen header row. Numeric fields are stored as numbers.
func WriteXLSX(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	preamble := Preamble(doc.Args)
	for i, line := range preamble {
		if err := setRow(f, i+1, toCells(line, false)); err != nil {
			return err
		}
	}

	headerRow := len(preamble) + 2
	for i, row := range doc.Rows {
		if err := setRow(f, headerRow+i, toCells(row, i > 0)); err != nil {
			return err
		}
	}

	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9EAD3"}},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, headerRow, headerRow, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	topLeft, err := excelize.CoordinatesToCellName(1, headerRow+1)
	if err != nil {
		return err
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: topLeft,
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if err := f.SetColWidth(SheetName, "A", "A", 14); err != nil {
		return fmt.Errorf("sizing date column: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
		return fmt.Errorf("writing row %d: %w", row, err)
	}
	return nil
}

// toCells converts a text row into cell values. With numeric set, every field
// after the date column that parses as a decimal becomes a float64.
func toCells(row []string, numeric bool) []any {
	cells := make([]any, len(row))
	for i, v := range row {
		cells[i] = v
		if !numeric || i == 0 || v == "" {
			continue
		}
		if d, err := decimal.NewFromString(v); err == nil {
			cells[i] = toFloat(d)
		}
	}
	return cells
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
