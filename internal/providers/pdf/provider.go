package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

// Provider renders printable invoices and, once paid, receipts.
type Provider interface {
	GenerateInvoice(ctx context.Context, data InvoiceData) (io.Reader, error)
	GenerateReceipt(ctx context.Context, data ReceiptData) (io.Reader, error)
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)

// InvoiceData is a fully formatted invoice. Amounts and dates are display
// strings.
type InvoiceData struct {
	OrgName       string
	OrgAddress    string
	OrgEmail      string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Issuer        string
	Notes         string

	BillToLabel   string
	BillToName    string
	BillToRef     string
	BillToAddress string
	BillToEmail   string
	BillToPhone   string

	Items []InvoiceItem

	Subtotal  string
	TaxLabel  string
	TaxAmount string
	Total     string
}

type InvoiceItem struct {
	Description string
	Qty         int64
	UnitPrice   string
	Amount      string
}

type ReceiptData struct {
	InvoiceData
	DatePaid string
}
