package pdf

import (
	"bytes"
	"context"
	"io"
	"strconv"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const lineHeight = 5.0

var (
	small = props.Text{Size: 9}
	bold  = props.Text{Size: 9, Style: fontstyle.Bold}
	right = props.Text{Size: 9, Align: align.Right}
)

type MarotoProvider struct{}

func New() Provider {
	return &MarotoProvider{}
}

func (p *MarotoProvider) GenerateInvoice(_ context.Context, data InvoiceData) (io.Reader, error) {
	return render(compose("INVOICE", data, []string{
		"Date: " + data.IssueDate,
		"Due: " + data.DueDate,
	}, "Payment is due by "+data.DueDate))
}

func (p *MarotoProvider) GenerateReceipt(_ context.Context, data ReceiptData) (io.Reader, error) {
	return render(compose("RECEIPT", data.InvoiceData, []string{
		"Date: " + data.IssueDate,
		"Paid: " + data.DatePaid,
	}, data.Total+" received on "+data.DatePaid))
}

func compose(title string, data InvoiceData, dates []string, dueLine string) core.Maroto {
	m := maroto.New(config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build())

	header := append([]string{"#" + data.InvoiceNumber}, dates...)
	if data.Issuer != "" {
		header = append(header, "Issued by: "+data.Issuer)
	}
	org := nonEmpty(data.OrgAddress, prefixed("Email: ", data.OrgEmail))
	m.AddRow(rowHeight(max(len(header), len(org))+2),
		col.New(6).Add(stack(props.Text{Size: 14, Style: fontstyle.Bold}, small, data.OrgName, org)...),
		col.New(6).Add(stack(props.Text{Size: 18, Style: fontstyle.Bold, Align: align.Right}, right, title, header)...),
	)

	m.AddRow(8, text.NewCol(12, "Bill To:", props.Text{Size: 11, Style: fontstyle.Bold, Top: 2}))
	billTo := billToLines(data)
	m.AddRow(rowHeight(len(billTo)+1),
		col.New(12).Add(stack(props.Text{Size: 10, Style: fontstyle.Bold}, small, data.BillToName, billTo)...),
	)

	addItems(m, data.Items)
	addTotals(m, data)

	if data.Notes != "" {
		m.AddRow(8, text.NewCol(12, "Notes:", props.Text{Size: 10, Style: fontstyle.Bold, Top: 2}))
		m.AddRow(15, text.NewCol(12, data.Notes, small))
	}

	m.AddRow(4, line.NewCol(12))
	footer := props.Text{Size: 9, Align: align.Center}
	m.AddRow(6, text.NewCol(12, "Thank you for choosing "+data.OrgName+"!", footer))
	m.AddRow(6, text.NewCol(12, dueLine, footer))
	m.AddRow(6, text.NewCol(12, "This document was generated electronically and is valid without signature.",
		props.Text{Size: 7, Align: align.Center}))

	return m
}

// billToLines labels each contact detail of the party, skipping blanks.
func billToLines(data InvoiceData) []string {
	label := data.BillToLabel
	if label == "" {
		label = "Ref"
	}
	return nonEmpty(
		prefixed(label+": ", data.BillToRef),
		prefixed("Email: ", data.BillToEmail),
		prefixed("Phone: ", data.BillToPhone),
		prefixed("Address: ", data.BillToAddress),
	)
}

func addItems(m core.Maroto, items []InvoiceItem) {
	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Size: 10, Style: fontstyle.Bold, Top: 3}),
		text.NewCol(2, "Qty", props.Text{Size: 10, Style: fontstyle.Bold, Top: 3, Align: align.Center}),
		text.NewCol(2, "Unit Price", props.Text{Size: 10, Style: fontstyle.Bold, Top: 3, Align: align.Right}),
		text.NewCol(2, "Total", props.Text{Size: 10, Style: fontstyle.Bold, Top: 3, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12, props.Line{Thickness: 0.6}))

	for _, item := range items {
		m.AddRow(8,
			text.NewCol(6, item.Description, small),
			text.NewCol(2, strconv.FormatInt(item.Qty, 10), props.Text{Size: 9, Align: align.Center}),
			text.NewCol(2, item.UnitPrice, right),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}),
		)
	}
}

func addTotals(m core.Maroto, data InvoiceData) {
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, "Subtotal:", small),
		text.NewCol(2, data.Subtotal, right),
	)
	m.AddRow(8,
		col.New(7),
		text.NewCol(3, data.TaxLabel+":", small),
		text.NewCol(2, data.TaxAmount, right),
	)
	m.AddRow(2, col.New(7), line.NewCol(5, props.Line{Thickness: 0.6}))
	m.AddRow(10,
		col.New(7),
		text.NewCol(3, "Total:", props.Text{Size: 12, Style: fontstyle.Bold}),
		text.NewCol(2, data.Total, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right}),
	)
}

// stack places a heading followed by one text line per entry.
func stack(headStyle, lineStyle props.Text, head string, lines []string) []core.Component {
	components := []core.Component{text.New(head, headStyle)}
	for i, l := range lines {
		style := lineStyle
		style.Top = 8 + float64(i)*lineHeight
		components = append(components, text.New(l, style))
	}
	return components
}

func rowHeight(lines int) float64 {
	return float64(lines)*lineHeight + 4
}

func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func render(m core.Maroto) (io.Reader, error) {
	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
