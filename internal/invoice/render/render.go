package render

import "time"

// Renderer turns a prepared invoice view into printable HTML.
type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}

type RenderInput struct {
	Org     OrgView
	Invoice InvoiceView
	BillTo  PartyView
	Items   []LineItemView
}

type OrgView struct {
	Name    string
	Address string
	Email   string
}

type InvoiceView struct {
	Number    string
	Type      string
	Status    string
	Issuer    string
	IssuedAt  time.Time
	DueDate   time.Time
	Notes     string
	Subtotal  float64
	TaxRate   float64
	TaxAmount float64
	Total     float64
}

type PartyView struct {
	Label   string
	Name    string
	Ref     string
	Email   string
	Phone   string
	Address string
}

type LineItemView struct {
	Description string
	Quantity    int64
	UnitPrice   float64
	Amount      float64
}
