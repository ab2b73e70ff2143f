package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
)

// CommonIssuers are offered ahead of recently used issuer names.
var CommonIssuers = []string{
	"Finance Manager",
	"Accounting Officer",
	"Administrative Assistant",
	"Director of Finance",
	"Billing Coordinator",
	"Student Services Manager",
}

type CreateInvoiceRequest struct {
	Type          string            `json:"type"`
	StudentID     string            `json:"student_id"`
	ClientID      string            `json:"client_id"`
	InvoiceNumber string            `json:"invoice_number"`
	Items         []totals.LineItem `json:"items"`
	TaxRate       *float64          `json:"tax_rate"`
	DueDate       string            `json:"due_date"`
	Notes         string            `json:"notes"`
	Status        string            `json:"status"`
	Issuer        string            `json:"issuer"`
}

type ListInvoiceRequest struct {
	pagination.Pagination

	Status string
	Type   string
	Issuer string
	Search string
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Party is the addressee printed on an invoice.
type Party struct {
	Name    string
	Email   string
	Phone   string
	Address string
	Ref     string
}

type PDFDocument struct {
	FileName string
	Content  io.Reader
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	UpdateStatus(ctx context.Context, id string, req UpdateStatusRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	ListIssuers(ctx context.Context) ([]string, error)
	// MarkOverdue moves up to limit sent invoices past their due date to
	// overdue and reports how many changed.
	MarkOverdue(ctx context.Context, limit int) (int, error)

	RenderHTML(ctx context.Context, id string) (string, error)
	RenderPDF(ctx context.Context, id string) (PDFDocument, error)
	ExportXLSX(ctx context.Context, req ListInvoiceRequest) ([]byte, error)
}

// NumberingService is the slice of the numbering service invoices depend on.
type NumberingService interface {
	Generate(ctx context.Context, category numbering.Category) numbering.Generated
	GenerateAfter(ctx context.Context, category numbering.Category, taken numbering.Generated) numbering.Generated
	ValidateUniqueness(ctx context.Context, candidate string) (bool, error)
}

// DueDateLayout is the accepted due date format.
const DueDateLayout = time.DateOnly

var (
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidStudent   = errors.New("invalid_student")
	ErrInvalidClient    = errors.New("invalid_client")
	ErrInvalidDueDate   = errors.New("invalid_due_date")
	ErrInvalidIssuer    = errors.New("invalid_issuer")
	ErrInvalidItems     = errors.New("invalid_items")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidTaxRate   = errors.New("invalid_tax_rate")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrStudentNotFound  = errors.New("student_not_found")
	ErrClientNotFound   = errors.New("client_not_found")
	ErrDuplicateNumber  = errors.New("duplicate_invoice_number")
)
