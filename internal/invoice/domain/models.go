// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/invoice/numbering"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "draft"
	InvoiceStatusSent    InvoiceStatus = "sent"
	InvoiceStatusPaid    InvoiceStatus = "paid"
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Statuses lists every invoice status in lifecycle order.
func Statuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
	}
}

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPaid, InvoiceStatusOverdue:
		return true
	}
	return false
}

// Invoice is an issued invoice for either a student or a client.
// Items are stored inline as a JSON column.
type Invoice struct {
	ID            snowflake.ID                         `gorm:"primaryKey" json:"id"`
	InvoiceNumber string                               `gorm:"type:text;not null;uniqueIndex:ux_invoices_invoice_number" json:"invoice_number"`
	Type          numbering.Category                   `gorm:"type:text;not null;index" json:"type"`
	StudentID     *snowflake.ID                        `gorm:"index" json:"student_id,omitempty"`
	ClientID      *snowflake.ID                        `gorm:"index" json:"client_id,omitempty"`
	Items         datatypes.JSONSlice[totals.LineItem] `gorm:"not null" json:"items"`
	Subtotal      float64                              `gorm:"not null;default:0" json:"subtotal"`
	TaxRate       float64                              `gorm:"not null;default:0" json:"tax_rate"`
	TaxAmount     float64                              `gorm:"not null;default:0" json:"tax_amount"`
	Total         float64                              `gorm:"not null;default:0" json:"total"`
	DueDate       time.Time                            `gorm:"not null" json:"due_date"`
	Notes         string                               `gorm:"type:text;not null;default:''" json:"notes"`
	Status        InvoiceStatus                        `gorm:"type:text;not null;default:'draft';index" json:"status"`
	Issuer        string                               `gorm:"type:text;not null;default:''" json:"issuer"`
	CreatedAt     time.Time                            `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                            `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Totals returns the stored totals.
func (i Invoice) Totals() totals.Totals {
	return totals.Totals{
		Subtotal:  i.Subtotal,
		TaxRate:   i.TaxRate,
		TaxAmount: i.TaxAmount,
		Total:     i.Total,
	}
}
