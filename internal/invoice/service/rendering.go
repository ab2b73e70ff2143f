package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/export"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	obslogger "github.com/smallbiznis/invoicer/internal/observability/logger"
	partydomain "github.com/smallbiznis/invoicer/internal/party/domain"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"go.uber.org/zap"
)

func (s *Service) RenderHTML(ctx context.Context, id string) (string, error) {
	if s.renderer == nil {
		return "", errors.New("renderer_not_configured")
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	party, err := s.billTo(ctx, &invoice)
	if err != nil {
		return "", err
	}

	return s.renderer.RenderHTML(render.RenderInput{
		Org: render.OrgView{
			Name:    s.cfg.OrgName,
			Address: s.cfg.OrgAddress,
			Email:   s.cfg.OrgEmail,
		},
		Invoice: render.InvoiceView{
			Number:    invoice.InvoiceNumber,
			Type:      string(invoice.Type),
			Status:    string(invoice.Status),
			Issuer:    invoice.Issuer,
			IssuedAt:  invoice.CreatedAt.In(s.loc),
			DueDate:   invoice.DueDate.UTC(),
			Notes:     invoice.Notes,
			Subtotal:  invoice.Subtotal,
			TaxRate:   invoice.TaxRate,
			TaxAmount: invoice.TaxAmount,
			Total:     invoice.Total,
		},
		BillTo: render.PartyView{
			Label:   refLabel(invoice.Type),
			Name:    party.Name,
			Ref:     party.Ref,
			Email:   party.Email,
			Phone:   party.Phone,
			Address: party.Address,
		},
		Items: buildLineItemViews(invoice.Items),
	})
}

// RenderPDF renders the invoice, or a receipt once it is paid.
func (s *Service) RenderPDF(ctx context.Context, id string) (invoicedomain.PDFDocument, error) {
	if s.pdf == nil {
		return invoicedomain.PDFDocument{}, errors.New("pdf_provider_not_configured")
	}

	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return invoicedomain.PDFDocument{}, err
	}
	party, err := s.billTo(ctx, &invoice)
	if err != nil {
		return invoicedomain.PDFDocument{}, err
	}

	data := s.buildPDFData(&invoice, party)
	if invoice.Status == invoicedomain.InvoiceStatusPaid {
		content, err := s.pdf.GenerateReceipt(ctx, pdf.ReceiptData{
			InvoiceData: data,
			DatePaid:    invoice.UpdatedAt.In(s.loc).Format(time.DateOnly),
		})
		if err != nil {
			return invoicedomain.PDFDocument{}, err
		}
		return invoicedomain.PDFDocument{
			FileName: "receipt-" + slug.Make(invoice.InvoiceNumber) + ".pdf",
			Content:  content,
		}, nil
	}

	content, err := s.pdf.GenerateInvoice(ctx, data)
	if err != nil {
		return invoicedomain.PDFDocument{}, err
	}
	return invoicedomain.PDFDocument{
		FileName: "invoice-" + slug.Make(invoice.InvoiceNumber) + ".pdf",
		Content:  content,
	}, nil
}

// ExportXLSX writes every invoice matching req, newest first, up to
// exportMaxRows rows. The page fields of req are ignored.
func (s *Service) ExportXLSX(ctx context.Context, req invoicedomain.ListInvoiceRequest) ([]byte, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return nil, err
	}

	page := pagination.Pagination{PageSize: pagination.MaxPageSize}
	names := make(map[snowflake.ID]string)
	rows := make([]export.Row, 0)
	for len(rows) < exportMaxRows {
		items, err := s.repo.List(ctx, s.db, filter, page)
		if err != nil {
			return nil, err
		}
		items, info := pagination.Trim(items, page.Size(), func(i *invoicedomain.Invoice) string {
			return i.ID.String()
		})

		for _, item := range items {
			if item == nil || len(rows) >= exportMaxRows {
				continue
			}
			party, err := s.cachedBillTo(ctx, item, names)
			if err != nil {
				return nil, err
			}
			rows = append(rows, export.Row{
				Number:    item.InvoiceNumber,
				Type:      string(item.Type),
				BillTo:    party,
				Issuer:    item.Issuer,
				Status:    string(item.Status),
				CreatedAt: item.CreatedAt.In(s.loc),
				DueDate:   item.DueDate.UTC(),
				Subtotal:  item.Subtotal,
				TaxRate:   item.TaxRate,
				TaxAmount: item.TaxAmount,
				Total:     item.Total,
			})
		}

		if !info.HasMore {
			break
		}
		page.PageToken = info.NextPageToken
	}

	return export.XLSX(rows)
}

func (s *Service) cachedBillTo(ctx context.Context, invoice *invoicedomain.Invoice, names map[snowflake.ID]string) (string, error) {
	var key snowflake.ID
	switch {
	case invoice.StudentID != nil:
		key = *invoice.StudentID
	case invoice.ClientID != nil:
		key = *invoice.ClientID
	default:
		return "", nil
	}
	if name, ok := names[key]; ok {
		return name, nil
	}

	party, err := s.billTo(ctx, invoice)
	if err != nil {
		return "", err
	}
	names[key] = party.Name
	return party.Name, nil
}

func refLabel(t numbering.Category) string {
	if t == numbering.CategoryStudent {
		return "Student ID"
	}
	return "Ref"
}

// billTo loads the student or client an invoice is addressed to. A party
// that no longer exists renders as blank.
func (s *Service) billTo(ctx context.Context, invoice *invoicedomain.Invoice) (invoicedomain.Party, error) {
	switch {
	case invoice.StudentID != nil:
		student, err := s.parties.GetStudent(ctx, invoice.StudentID.String())
		if errors.Is(err, partydomain.ErrNotFound) {
			obslogger.WithContext(ctx, s.log).Warn("invoice student missing", zap.String("invoice_id", invoice.ID.String()))
			return invoicedomain.Party{}, nil
		}
		if err != nil {
			return invoicedomain.Party{}, err
		}
		return invoicedomain.Party{
			Name:  student.Name,
			Email: student.Email,
			Phone: student.Phone,
			Ref:   student.StudentNumber,
		}, nil

	case invoice.ClientID != nil:
		client, err := s.parties.GetClient(ctx, invoice.ClientID.String())
		if errors.Is(err, partydomain.ErrNotFound) {
			obslogger.WithContext(ctx, s.log).Warn("invoice client missing", zap.String("invoice_id", invoice.ID.String()))
			return invoicedomain.Party{}, nil
		}
		if err != nil {
			return invoicedomain.Party{}, err
		}
		return invoicedomain.Party{
			Name:    client.Name,
			Email:   client.Email,
			Phone:   client.Phone,
			Address: client.Address,
		}, nil
	}
	return invoicedomain.Party{}, nil
}

func (s *Service) buildPDFData(invoice *invoicedomain.Invoice, party invoicedomain.Party) pdf.InvoiceData {
	items := make([]pdf.InvoiceItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, pdf.InvoiceItem{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   totals.FormatAmount(item.UnitPrice),
			Amount:      totals.FormatAmount(item.Total),
		})
	}

	return pdf.InvoiceData{
		OrgName:       s.cfg.OrgName,
		OrgAddress:    s.cfg.OrgAddress,
		OrgEmail:      s.cfg.OrgEmail,
		InvoiceNumber: invoice.InvoiceNumber,
		IssueDate:     invoice.CreatedAt.In(s.loc).Format(time.DateOnly),
		DueDate:       invoice.DueDate.UTC().Format(time.DateOnly),
		Issuer:        invoice.Issuer,
		Notes:         invoice.Notes,

		BillToLabel:   refLabel(invoice.Type),
		BillToName:    party.Name,
		BillToRef:     party.Ref,
		BillToAddress: party.Address,
		BillToEmail:   party.Email,
		BillToPhone:   party.Phone,

		Items: items,

		Subtotal:  totals.FormatAmount(invoice.Subtotal),
		TaxLabel:  "Tax (" + strconv.FormatFloat(invoice.TaxRate, 'f', -1, 64) + "%)",
		TaxAmount: totals.FormatAmount(invoice.TaxAmount),
		Total:     totals.FormatAmount(invoice.Total),
	}
}

func buildLineItemViews(items []totals.LineItem) []render.LineItemView {
	views := make([]render.LineItemView, 0, len(items))
	for _, item := range items {
		views = append(views, render.LineItemView{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Total,
		})
	}
	return views
}
