package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	obslogger "github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	partydomain "github.com/smallbiznis/invoicer/internal/party/domain"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	maxNumberAttempts = 3
	recentIssuerScan  = 10
	recentIssuerKeep  = 5
	exportMaxRows     = 5000
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Repo      invoicedomain.Repository
	Numbering invoicedomain.NumberingService
	Parties   partydomain.Service
	Renderer  render.Renderer
	PDF       pdf.Provider
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clock     clock.Clock
	cfg       config.InvoiceConfig
	loc       *time.Location
	repo      invoicedomain.Repository
	numbering invoicedomain.NumberingService
	parties   partydomain.Service
	renderer  render.Renderer
	pdf       pdf.Provider
	metrics   *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("invoice.service"),

		genID:     p.GenID,
		clock:     p.Clock,
		cfg:       p.Config.Invoice,
		loc:       p.Config.Invoice.Location(),
		repo:      p.Repo,
		numbering: p.Numbering,
		parties:   p.Parties,
		renderer:  p.Renderer,
		pdf:       p.PDF,
		metrics:   p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (invoicedomain.Invoice, error) {
	category, err := numbering.ParseCategory(req.Type)
	if err != nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidType
	}

	invoice := invoicedomain.Invoice{Type: category}
	switch category {
	case numbering.CategoryStudent:
		student, err := s.parties.GetStudent(ctx, req.StudentID)
		if err != nil {
			return invoicedomain.Invoice{}, partyError(err, invoicedomain.ErrInvalidStudent, invoicedomain.ErrStudentNotFound)
		}
		invoice.StudentID = &student.ID
	case numbering.CategoryClient:
		client, err := s.parties.GetClient(ctx, req.ClientID)
		if err != nil {
			return invoicedomain.Invoice{}, partyError(err, invoicedomain.ErrInvalidClient, invoicedomain.ErrClientNotFound)
		}
		invoice.ClientID = &client.ID
	}

	now := s.clock.Now()
	dueDate, err := s.dueDate(req.DueDate, now)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	issuer := strings.TrimSpace(req.Issuer)
	if issuer == "" {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidIssuer
	}

	items := normalizeItems(req.Items)
	if len(items) == 0 {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidItems
	}

	taxRate := s.cfg.DefaultTaxRate
	if req.TaxRate != nil {
		taxRate = *req.TaxRate
	}
	if math.IsNaN(taxRate) || math.IsInf(taxRate, 0) {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvalidTaxRate
	}

	status := invoicedomain.InvoiceStatusDraft
	if strings.TrimSpace(req.Status) != "" {
		status, err = parseStatus(req.Status)
		if err != nil {
			return invoicedomain.Invoice{}, err
		}
	}

	sum := totals.ComputeInvoiceTotals(items, taxRate)
	invoice.Items = items
	invoice.Subtotal = sum.Subtotal
	invoice.TaxRate = sum.TaxRate
	invoice.TaxAmount = sum.TaxAmount
	invoice.Total = sum.Total
	invoice.DueDate = dueDate
	invoice.Notes = strings.TrimSpace(req.Notes)
	invoice.Status = status
	invoice.Issuer = issuer
	invoice.CreatedAt = now.UTC()
	invoice.UpdatedAt = now.UTC()

	if number := strings.TrimSpace(req.InvoiceNumber); number != "" {
		if err := s.createWithNumber(ctx, &invoice, number); err != nil {
			return invoicedomain.Invoice{}, err
		}
	} else if err := s.createWithGeneratedNumber(ctx, &invoice); err != nil {
		return invoicedomain.Invoice{}, err
	}

	s.metrics.RecordInvoiceCreated(string(category))
	obslogger.WithContext(ctx, s.log).Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("type", string(category)),
	)
	return invoice, nil
}

func (s *Service) createWithNumber(ctx context.Context, invoice *invoicedomain.Invoice, number string) error {
	unique, err := s.numbering.ValidateUniqueness(ctx, number)
	switch {
	case err != nil:
		obslogger.WithContext(ctx, s.log).Warn("invoice number uniqueness unknown, relying on unique index",
			zap.String("invoice_number", number),
			zap.Error(err),
		)
	case !unique:
		return invoicedomain.ErrDuplicateNumber
	}

	invoice.InvoiceNumber = number
	return s.insert(ctx, invoice)
}

func (s *Service) createWithGeneratedNumber(ctx context.Context, invoice *invoicedomain.Invoice) error {
	generated := s.numbering.Generate(ctx, invoice.Type)
	for attempt := 1; ; attempt++ {
		invoice.InvoiceNumber = generated.Number

		err := s.insert(ctx, invoice)
		if err == nil {
			return nil
		}
		if !errors.Is(err, invoicedomain.ErrDuplicateNumber) || attempt >= maxNumberAttempts {
			return err
		}
		obslogger.WithContext(ctx, s.log).Warn("generated invoice number already taken, retrying",
			zap.String("invoice_number", generated.Number),
			zap.String("strategy", generated.Strategy),
			zap.Int("attempt", attempt),
		)
		generated = s.numbering.GenerateAfter(ctx, invoice.Type, generated)
	}
}

func (s *Service) insert(ctx context.Context, invoice *invoicedomain.Invoice) error {
	invoice.ID = s.genID.Generate()
	err := s.repo.Insert(ctx, s.db, invoice)
	if db.IsDuplicateKeyErr(err) {
		return invoicedomain.ErrDuplicateNumber
	}
	return err
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	filter, err := buildFilter(req)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return invoicedomain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.Trim(items, req.Size(), func(i *invoicedomain.Invoice) string {
		return i.ID.String()
	})

	invoices := make([]invoicedomain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return invoicedomain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if item == nil {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	return *item, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id string, req invoicedomain.UpdateStatusRequest) (invoicedomain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}

	ok, err := s.repo.UpdateStatus(ctx, s.db, invoiceID, status, s.clock.Now().UTC())
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	if !ok {
		return invoicedomain.Invoice{}, invoicedomain.ErrInvoiceNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	ok, err := s.repo.Delete(ctx, s.db, invoiceID)
	if err != nil {
		return err
	}
	if !ok {
		return invoicedomain.ErrInvoiceNotFound
	}
	return nil
}

// MarkOverdue flags sent invoices whose due date is before today.
func (s *Service) MarkOverdue(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = pagination.DefaultPageSize
	}

	now := s.clock.Now()
	y, m, d := now.In(s.loc).Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	n, err := s.repo.MarkOverdue(ctx, s.db, today, now.UTC(), limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.AddInvoicesOverdue(n)
		obslogger.WithContext(ctx, s.log).Info("invoices marked overdue", zap.Int("count", n))
	}
	return n, nil
}

// ListIssuers returns the common issuers followed by up to five distinct
// recently used ones.
func (s *Service) ListIssuers(ctx context.Context) ([]string, error) {
	recent, err := s.repo.RecentIssuers(ctx, s.db, recentIssuerScan)
	if err != nil {
		return nil, err
	}

	issuers := slices.Clone(invoicedomain.CommonIssuers)
	seen := make(map[string]struct{}, len(recent))
	kept := 0
	for _, name := range recent {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if slices.Contains(invoicedomain.CommonIssuers, name) {
			continue
		}
		issuers = append(issuers, name)
		if kept++; kept == recentIssuerKeep {
			break
		}
	}
	return issuers, nil
}

// dueDate parses a YYYY-MM-DD date. A blank value defaults to the configured
// number of days after today. The result is midnight UTC of that date.
func (s *Service) dueDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		y, m, d := now.In(s.loc).Date()
		return time.Date(y, m, d+s.cfg.DefaultDueDays, 0, 0, 0, 0, time.UTC), nil
	}

	parsed, err := time.Parse(invoicedomain.DueDateLayout, raw)
	if err != nil {
		return time.Time{}, invoicedomain.ErrInvalidDueDate
	}
	return parsed, nil
}

// normalizeItems drops rows without a description, clamps quantity to at
// least one and unit price to at least zero, and recomputes line totals.
func normalizeItems(in []totals.LineItem) []totals.LineItem {
	items := make([]totals.LineItem, 0, len(in))
	for _, item := range in {
		item.Description = strings.TrimSpace(item.Description)
		if item.Description == "" {
			continue
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) || item.UnitPrice < 0 {
			item.UnitPrice = 0
		}
		if strings.TrimSpace(item.ID) == "" {
			item.ID = uuid.NewString()
		}
		item.Recompute()
		items = append(items, item)
	}
	return items
}

func buildFilter(req invoicedomain.ListInvoiceRequest) (invoicedomain.ListFilter, error) {
	filter := invoicedomain.ListFilter{
		Issuer: req.Issuer,
		Search: req.Search,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, err := parseStatus(req.Status)
		if err != nil {
			return invoicedomain.ListFilter{}, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.Type) != "" {
		category, err := numbering.ParseCategory(req.Type)
		if err != nil {
			return invoicedomain.ListFilter{}, invoicedomain.ErrInvalidType
		}
		filter.Type = string(category)
	}
	return filter, nil
}

func parseStatus(raw string) (invoicedomain.InvoiceStatus, error) {
	status := invoicedomain.InvoiceStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", invoicedomain.ErrInvalidStatus
	}
	return status, nil
}

func partyError(err, invalid, notFound error) error {
	switch {
	case errors.Is(err, partydomain.ErrInvalidID):
		return invalid
	case errors.Is(err, partydomain.ErrNotFound):
		return notFound
	default:
		return err
	}
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, invoicedomain.ErrInvalidInvoiceID
	}
	return id, nil
}
