// Package export writes invoice listings as spreadsheets.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	sheetName = "Invoices"

	// excelize built-in number format 4 is "#,##0.00".
	amountNumFmt = 4
)

var header = []any{
	"Invoice Number", "Type", "Bill To", "Issuer", "Status",
	"Created", "Due Date", "Subtotal", "Tax Rate (%)", "Tax", "Total",
}

// Row is one exported invoice.
type Row struct {
	Number    string
	Type      string
	BillTo    string
	Issuer    string
	Status    string
	CreatedAt time.Time
	DueDate   time.Time
	Subtotal  float64
	TaxRate   float64
	TaxAmount float64
	Total     float64
}

// XLSX renders rows into a single-sheet workbook.
func XLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	amount, err := f.NewStyle(&excelize.Style{NumFmt: amountNumFmt})
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return nil, err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []any{
			row.Number,
			row.Type,
			row.BillTo,
			row.Issuer,
			row.Status,
			row.CreatedAt.Format(time.DateOnly),
			row.DueDate.Format(time.DateOnly),
			row.Subtotal,
			row.TaxRate,
			row.TaxAmount,
			row.Total,
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if len(rows) > 0 {
		from, _ := excelize.CoordinatesToCellName(8, 2)
		to, _ := excelize.CoordinatesToCellName(len(header), len(rows)+1)
		if err := f.SetCellStyle(sheetName, from, to, amount); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(sheetName, "A", "A", 24); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(sheetName, "C", "D", 28); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
