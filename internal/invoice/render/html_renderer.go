package render

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/invoicer/internal/invoice/totals"
)

//go:embed templates/invoice.gohtml
var templateFS embed.FS

const (
	templateName = "invoice.gohtml"
	dateLayout   = "02 Jan 2006"
	defaultOrg   = "Invoice"
)

type HTMLRenderer struct {
	tpl *template.Template
}

func NewRenderer() Renderer {
	tpl := template.New(templateName).Funcs(template.FuncMap{
		"formatMoney": totals.FormatAmount,
		"formatDate":  formatDate,
		"formatRate":  formatRate,
		"docTitle":    docTitle,
	})
	return &HTMLRenderer{
		tpl: template.Must(tpl.ParseFS(templateFS, "templates/"+templateName)),
	}
}

// RenderHTML produces a standalone A4 page. Paid invoices render as receipts.
func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	if strings.TrimSpace(input.Org.Name) == "" {
		input.Org.Name = defaultOrg
	}
	if input.BillTo.Label == "" {
		input.BillTo.Label = "Ref"
	}

	var buf bytes.Buffer
	if err := r.tpl.ExecuteTemplate(&buf, templateName, input); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func docTitle(status string) string {
	if status == "paid" {
		return "Receipt"
	}
	return "Invoice"
}

func formatDate(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return value.Format(dateLayout)
}

func formatRate(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
