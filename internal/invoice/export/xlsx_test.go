package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestXLSX(t *testing.T) {
	created := time.Date(2025, 7, 5, 9, 0, 0, 0, time.UTC)
	data, err := XLSX([]Row{
		{
			Number:    "PPFI-STU2507050001",
			Type:      "student",
			BillTo:    "Ayu Lestari",
			Issuer:    "Finance Manager",
			Status:    "draft",
			CreatedAt: created,
			DueDate:   created.AddDate(0, 0, 30),
			Subtotal:  100,
			TaxRate:   10,
			TaxAmount: 10,
			Total:     110,
		},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Invoices"}, f.GetSheetList())

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Invoice Number", rows[0][0])
	assert.Equal(t, "PPFI-STU2507050001", rows[1][0])
	assert.Equal(t, "2025-08-04", rows[1][6])

	total, err := f.GetCellValue("Invoices", "K2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "110", total)
}

func TestXLSXEmpty(t *testing.T) {
	data, err := XLSX(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Invoices")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
