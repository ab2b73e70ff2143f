package totals

import (
	"math"

	"github.com/shopspring/decimal"
)

// LineItem is a single billable row on an invoice.
// Total always reflects Quantity * UnitPrice; call Recompute after changing either.
type LineItem struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Quantity    int64   `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
}

// Recompute refreshes Total from Quantity and UnitPrice.
func (i *LineItem) Recompute() {
	i.Total = ComputeLineTotal(i.Quantity, i.UnitPrice)
}

// Totals is the computed summary of an invoice.
type Totals struct {
	Subtotal  float64 `json:"subtotal"`
	TaxRate   float64 `json:"tax_rate"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

// ComputeLineTotal multiplies quantity by unit price. Inputs are not validated.
func ComputeLineTotal(quantity int64, unitPrice float64) float64 {
	return float64(quantity) * unitPrice
}

// ComputeInvoiceTotals sums line totals and applies taxRate as a percentage.
// Non-finite line totals contribute zero. Values are not rounded.
func ComputeInvoiceTotals(items []LineItem, taxRate float64) Totals {
	var subtotal float64
	for _, item := range items {
		if math.IsNaN(item.Total) || math.IsInf(item.Total, 0) {
			continue
		}
		subtotal += item.Total
	}

	tax := subtotal * taxRate / 100
	return Totals{
		Subtotal:  subtotal,
		TaxRate:   taxRate,
		TaxAmount: tax,
		Total:     subtotal + tax,
	}
}

// FormatAmount renders v with two decimals for display.
func FormatAmount(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}
