package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/render"
	invoicerepo "github.com/smallbiznis/invoicer/internal/invoice/repository"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	partydomain "github.com/smallbiznis/invoicer/internal/party/domain"
	partyrepo "github.com/smallbiznis/invoicer/internal/party/repository"
	partyservice "github.com/smallbiznis/invoicer/internal/party/service"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type mockNumbering struct {
	mock.Mock
}

func (m *mockNumbering) Generate(ctx context.Context, category numbering.Category) numbering.Generated {
	args := m.Called(ctx, category)
	return args.Get(0).(numbering.Generated)
}

func (m *mockNumbering) GenerateAfter(ctx context.Context, category numbering.Category, taken numbering.Generated) numbering.Generated {
	args := m.Called(ctx, category, taken)
	return args.Get(0).(numbering.Generated)
}

func (m *mockNumbering) ValidateUniqueness(ctx context.Context, candidate string) (bool, error) {
	args := m.Called(ctx, candidate)
	return args.Bool(0), args.Error(1)
}

type fixture struct {
	svc     invoicedomain.Service
	parties partydomain.Service
	student partydomain.Student
	client  partydomain.Client
	clock   *clock.FakeClock
}

var testNow = time.Date(2025, 7, 5, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T, numberingSvc invoicedomain.NumberingService) fixture {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, conn.AutoMigrate(&partydomain.Student{}, &partydomain.Client{}, &invoicedomain.Invoice{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(testNow)
	log := zap.NewNop()

	parties := partyservice.New(partyservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: fake,
		Repo:  partyrepo.Provide(),
	})

	repo := invoicerepo.New(conn)
	if numberingSvc == nil {
		gen, err := numbering.NewGenerator(numbering.DefaultConfig(), numbering.Dependencies{
			Store:    repo,
			Clock:    fake,
			Location: time.UTC,
			Log:      log,
		})
		require.NoError(t, err)
		numberingSvc = gen
	}

	svc := NewService(ServiceParam{
		DB:    conn,
		Log:   log,
		GenID: node,
		Clock: fake,
		Config: config.Config{Invoice: config.InvoiceConfig{
			Timezone:       "UTC",
			DefaultTaxRate: 10,
			DefaultDueDays: 30,
			OrgName:        "PPFI",
		}},
		Repo:      repo,
		Numbering: numberingSvc,
		Parties:   parties,
		Renderer:  render.NewRenderer(),
		PDF:       pdf.New(),
	})

	ctx := context.Background()
	student, err := parties.CreateStudent(ctx, partydomain.CreateStudentRequest{
		Name:          "Ayu Lestari",
		Email:         "ayu@example.com",
		Phone:         "0812",
		Program:       "BFA-YEAR",
		StudentNumber: "PPFI25-001",
	})
	require.NoError(t, err)
	client, err := parties.CreateClient(ctx, partydomain.CreateClientRequest{
		Name:    "Acme",
		Email:   "billing@acme.test",
		Phone:   "021",
		Address: "Jakarta",
	})
	require.NoError(t, err)

	return fixture{svc: svc, parties: parties, student: student, client: client, clock: fake}
}

func (f fixture) studentRequest() invoicedomain.CreateInvoiceRequest {
	return invoicedomain.CreateInvoiceRequest{
		Type:      "student",
		StudentID: f.student.ID.String(),
		Issuer:    "Finance Manager",
		Items: []totals.LineItem{
			{Description: "Tuition", Quantity: 2, UnitPrice: 100},
		},
	}
}

func paginationOf(size int, token string) pagination.Pagination {
	return pagination.Pagination{PageSize: size, PageToken: token}
}

func TestCreateComputesTotalsAndNumber(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := f.studentRequest()
	req.Items = append(req.Items,
		totals.LineItem{Description: "   ", Quantity: 5, UnitPrice: 10},
		totals.LineItem{Description: "Books", Quantity: 0, UnitPrice: -5},
	)

	invoice, err := f.svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, "PPFI-STU2507050001", invoice.InvoiceNumber)
	assert.Equal(t, invoicedomain.InvoiceStatusDraft, invoice.Status)
	require.Len(t, invoice.Items, 2)
	assert.Equal(t, int64(1), invoice.Items[1].Quantity)
	assert.Zero(t, invoice.Items[1].UnitPrice)
	assert.NotEmpty(t, invoice.Items[0].ID)
	assert.InDelta(t, 200, invoice.Subtotal, 1e-9)
	assert.InDelta(t, 10, invoice.TaxRate, 1e-9)
	assert.InDelta(t, 20, invoice.TaxAmount, 1e-9)
	assert.InDelta(t, 220, invoice.Total, 1e-9)
	assert.Equal(t, "2025-08-04", invoice.DueDate.Format(time.DateOnly))
	require.NotNil(t, invoice.StudentID)
	assert.Equal(t, f.student.ID, *invoice.StudentID)

	second, err := f.svc.Create(ctx, f.studentRequest())
	require.NoError(t, err)
	assert.Equal(t, "PPFI-STU2507050002", second.InvoiceNumber)

	rate := 0.0
	clientReq := invoicedomain.CreateInvoiceRequest{
		Type:     "client",
		ClientID: f.client.ID.String(),
		Issuer:   "Billing Coordinator",
		TaxRate:  &rate,
		DueDate:  "2025-09-01",
		Status:   "Sent",
		Items:    []totals.LineItem{{Description: "Workshop", Quantity: 3, UnitPrice: 0.1}},
	}
	clientInvoice, err := f.svc.Create(ctx, clientReq)
	require.NoError(t, err)
	assert.Equal(t, "PPFI-CLI2507050001", clientInvoice.InvoiceNumber)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, clientInvoice.Status)
	assert.Equal(t, clientInvoice.Subtotal, clientInvoice.Total)
	assert.Equal(t, "2025-09-01", clientInvoice.DueDate.Format(time.DateOnly))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*invoicedomain.CreateInvoiceRequest)
		want   error
	}{
		{"unknown type", func(r *invoicedomain.CreateInvoiceRequest) { r.Type = "vendor" }, invoicedomain.ErrInvalidType},
		{"missing student", func(r *invoicedomain.CreateInvoiceRequest) { r.StudentID = "" }, invoicedomain.ErrInvalidStudent},
		{"unknown student", func(r *invoicedomain.CreateInvoiceRequest) { r.StudentID = "42" }, invoicedomain.ErrStudentNotFound},
		{"client without client", func(r *invoicedomain.CreateInvoiceRequest) { r.Type = "client" }, invoicedomain.ErrInvalidClient},
		{"bad due date", func(r *invoicedomain.CreateInvoiceRequest) { r.DueDate = "05/07/2025" }, invoicedomain.ErrInvalidDueDate},
		{"blank issuer", func(r *invoicedomain.CreateInvoiceRequest) { r.Issuer = " " }, invoicedomain.ErrInvalidIssuer},
		{"no described items", func(r *invoicedomain.CreateInvoiceRequest) {
			r.Items = []totals.LineItem{{Description: "", Quantity: 1, UnitPrice: 1}}
		}, invoicedomain.ErrInvalidItems},
		{"unknown status", func(r *invoicedomain.CreateInvoiceRequest) { r.Status = "void" }, invoicedomain.ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.studentRequest()
			tc.mutate(&req)
			_, err := f.svc.Create(ctx, req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateWithSuppliedNumber(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	req := f.studentRequest()
	req.InvoiceNumber = " MANUAL-001 "
	invoice, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "MANUAL-001", invoice.InvoiceNumber)

	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateNumber)
}

func TestCreateSuppliedNumberUniquenessUnknown(t *testing.T) {
	numberingSvc := new(mockNumbering)
	f := newFixture(t, numberingSvc)
	ctx := context.Background()

	numberingSvc.On("ValidateUniqueness", mock.Anything, "MANUAL-002").Return(false, errors.New("store down"))

	req := f.studentRequest()
	req.InvoiceNumber = "MANUAL-002"
	invoice, err := f.svc.Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "MANUAL-002", invoice.InvoiceNumber)

	_, err = f.svc.Create(ctx, req)
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateNumber, "unique index still rejects the duplicate")
}

func TestCreateRetriesGeneratedDuplicates(t *testing.T) {
	numberingSvc := new(mockNumbering)
	f := newFixture(t, numberingSvc)
	ctx := context.Background()

	taken := numbering.Generated{Number: "PPFI-STU2507050001", Strategy: numbering.StrategyScan, Sequence: 1, Degraded: true}
	fresh := numbering.Generated{Number: "PPFI-STU2507050002", Strategy: numbering.StrategyScan, Sequence: 2, Degraded: true}

	numberingSvc.On("Generate", mock.Anything, numbering.CategoryStudent).Return(taken).Once()
	_, err := f.svc.Create(ctx, f.studentRequest())
	require.NoError(t, err)

	numberingSvc.On("Generate", mock.Anything, numbering.CategoryStudent).Return(taken).Once()
	numberingSvc.On("GenerateAfter", mock.Anything, numbering.CategoryStudent, taken).Return(fresh).Once()
	invoice, err := f.svc.Create(ctx, f.studentRequest())
	require.NoError(t, err)
	assert.Equal(t, "PPFI-STU2507050002", invoice.InvoiceNumber)

	numberingSvc.On("Generate", mock.Anything, numbering.CategoryStudent).Return(taken).Once()
	numberingSvc.On("GenerateAfter", mock.Anything, numbering.CategoryStudent, taken).Return(taken).Times(maxNumberAttempts - 1)
	_, err = f.svc.Create(ctx, f.studentRequest())
	assert.ErrorIs(t, err, invoicedomain.ErrDuplicateNumber)

	numberingSvc.AssertNumberOfCalls(t, "Generate", 3)
	numberingSvc.AssertNumberOfCalls(t, "GenerateAfter", 1+maxNumberAttempts-1)
}

func TestCreateScanRetryStepsPastTakenNumber(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, number := range []string{"PPFI-STU2507050001", "PPFI-STU250705X"} {
		req := f.studentRequest()
		req.InvoiceNumber = number
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
	}

	// The unparseable top number sends the scan back to 1, which is taken.
	invoice, err := f.svc.Create(ctx, f.studentRequest())
	require.NoError(t, err)
	assert.Equal(t, "PPFI-STU2507050002", invoice.InvoiceNumber)
}

func TestCreateAfterManualLowerNumber(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, number := range []string{"PPFI-STU2507050003", "PPFI-STU2507050001"} {
		req := f.studentRequest()
		req.InvoiceNumber = number
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
	}

	var got []string
	for i := 0; i < 3; i++ {
		invoice, err := f.svc.Create(ctx, f.studentRequest())
		require.NoError(t, err)
		got = append(got, invoice.InvoiceNumber)
	}
	assert.Equal(t, []string{"PPFI-STU2507050004", "PPFI-STU2507050005", "PPFI-STU2507050006"}, got)
}

func TestListUpdateDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var created []invoicedomain.Invoice
	for i := 0; i < 3; i++ {
		invoice, err := f.svc.Create(ctx, f.studentRequest())
		require.NoError(t, err)
		created = append(created, invoice)
	}

	page, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Pagination: paginationOf(2, "")})
	require.NoError(t, err)
	require.Len(t, page.Invoices, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, created[2].ID, page.Invoices[0].ID)

	rest, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Pagination: paginationOf(2, page.NextPageToken)})
	require.NoError(t, err)
	require.Len(t, rest.Invoices, 1)
	assert.False(t, rest.HasMore)
	assert.Equal(t, created[0].ID, rest.Invoices[0].ID)

	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: "void"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatus)
	_, err = f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Type: "vendor"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidType)

	f.clock.Advance(time.Hour)
	updated, err := f.svc.UpdateStatus(ctx, created[1].ID.String(), invoicedomain.UpdateStatusRequest{Status: "paid"})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, updated.Status)

	paid, err := f.svc.List(ctx, invoicedomain.ListInvoiceRequest{Status: "paid"})
	require.NoError(t, err)
	require.Len(t, paid.Invoices, 1)
	assert.Equal(t, created[1].ID, paid.Invoices[0].ID)

	_, err = f.svc.UpdateStatus(ctx, created[1].ID.String(), invoicedomain.UpdateStatusRequest{Status: "lost"})
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidStatus)

	require.NoError(t, f.svc.Delete(ctx, created[0].ID.String()))
	assert.ErrorIs(t, f.svc.Delete(ctx, created[0].ID.String()), invoicedomain.ErrInvoiceNotFound)
	_, err = f.svc.GetByID(ctx, created[0].ID.String())
	assert.ErrorIs(t, err, invoicedomain.ErrInvoiceNotFound)
	_, err = f.svc.GetByID(ctx, "abc")
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidInvoiceID)
}

func TestMarkOverdue(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pastDue := f.studentRequest()
	pastDue.Status = "sent"
	pastDue.DueDate = "2025-07-01"
	late, err := f.svc.Create(ctx, pastDue)
	require.NoError(t, err)

	dueToday := f.studentRequest()
	dueToday.Status = "sent"
	dueToday.DueDate = "2025-07-05"
	onTime, err := f.svc.Create(ctx, dueToday)
	require.NoError(t, err)

	n, err := f.svc.MarkOverdue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.svc.GetByID(ctx, late.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusOverdue, got.Status)
	got, err = f.svc.GetByID(ctx, onTime.ID.String())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.InvoiceStatusSent, got.Status)

	f.clock.Advance(24 * time.Hour)
	n, err = f.svc.MarkOverdue(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListIssuers(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, issuer := range []string{"Finance Manager", "Custom A", "Custom B", "Custom A"} {
		req := f.studentRequest()
		req.Issuer = issuer
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
	}

	issuers, err := f.svc.ListIssuers(ctx)
	require.NoError(t, err)

	want := append(append([]string{}, invoicedomain.CommonIssuers...), "Custom A", "Custom B")
	assert.Equal(t, want, issuers)
}

func TestListIssuersCommonNamesDoNotUseRecentSlots(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	issuers := []string{"Custom 1", "Custom 2", "Custom 3", "Custom 4", "Custom 5", "Custom 6",
		"Finance Manager", "Accounting Officer", "Director of Finance"}
	for _, issuer := range issuers {
		req := f.studentRequest()
		req.Issuer = issuer
		_, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
	}

	got, err := f.svc.ListIssuers(ctx)
	require.NoError(t, err)

	want := append(append([]string{}, invoicedomain.CommonIssuers...),
		"Custom 6", "Custom 5", "Custom 4", "Custom 3", "Custom 2")
	assert.Equal(t, want, got)
}

func TestRenderAndExport(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	invoice, err := f.svc.Create(ctx, f.studentRequest())
	require.NoError(t, err)

	html, err := f.svc.RenderHTML(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Contains(t, html, invoice.InvoiceNumber)
	assert.Contains(t, html, "Ayu Lestari")
	assert.Contains(t, html, "PPFI25-001")
	assert.Contains(t, html, "220.00")

	doc, err := f.svc.RenderPDF(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "invoice-ppfi-stu2507050001.pdf", doc.FileName)
	content, err := io.ReadAll(doc.Content)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, []byte("%PDF")))

	_, err = f.svc.UpdateStatus(ctx, invoice.ID.String(), invoicedomain.UpdateStatusRequest{Status: "paid"})
	require.NoError(t, err)
	receipt, err := f.svc.RenderPDF(ctx, invoice.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "receipt-ppfi-stu2507050001.pdf", receipt.FileName)

	data, err := f.svc.ExportXLSX(ctx, invoicedomain.ListInvoiceRequest{})
	require.NoError(t, err)
	book, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer book.Close()
	rows, err := book.GetRows("Invoices")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, invoice.InvoiceNumber, rows[1][0])
	assert.Equal(t, "Ayu Lestari", rows[1][2])
}
