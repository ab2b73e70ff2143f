package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

// Repository persists invoices. The numbering lookups run on the handle it
// was built with; every other method takes the handle to run on so callers
// can pass a transaction.
type Repository struct {
	db *gorm.DB
}

func New(conn *gorm.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Insert(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, invoice_number, type, student_id, client_id, items,
			subtotal, tax_rate, tax_amount, total, due_date, notes,
			status, issuer, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.InvoiceNumber,
		invoice.Type,
		invoice.StudentID,
		invoice.ClientID,
		invoice.Items,
		invoice.Subtotal,
		invoice.TaxRate,
		invoice.TaxAmount,
		invoice.Total,
		invoice.DueDate,
		invoice.Notes,
		invoice.Status,
		invoice.Issuer,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *Repository) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *Repository) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	stmt := conn.WithContext(ctx).Model(&domain.Invoice{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if issuer := strings.TrimSpace(filter.Issuer); issuer != "" {
		stmt = stmt.Where("issuer = ?", issuer)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		stmt = stmt.Where("LOWER(invoice_number) LIKE ? ESCAPE '!'", db.ContainsPattern(search))
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var invoices []*domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, conn *gorm.DB, id snowflake.ID, status domain.InvoiceStatus, at time.Time) (bool, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		at,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) MarkOverdue(ctx context.Context, conn *gorm.DB, dueBefore, at time.Time, limit int) (int, error) {
	var ids []snowflake.ID
	err := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("status = ? AND due_date < ?", domain.InvoiceStatusSent, dueBefore).
		Order("id asc").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	result := conn.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, updated_at = ? WHERE id IN ? AND status = ?`,
		domain.InvoiceStatusOverdue,
		at,
		ids,
		domain.InvoiceStatusSent,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (r *Repository) Delete(ctx context.Context, conn *gorm.DB, id snowflake.ID) (bool, error) {
	result := conn.WithContext(ctx).Exec(`DELETE FROM invoices WHERE id = ?`, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecentIssuers returns the issuers of the newest invoices, duplicates included.
func (r *Repository) RecentIssuers(ctx context.Context, conn *gorm.DB, limit int) ([]string, error) {
	var issuers []string
	err := conn.WithContext(ctx).Raw(
		`SELECT issuer FROM invoices
		 WHERE issuer <> ''
		 ORDER BY id DESC
		 LIMIT ?`,
		limit,
	).Scan(&issuers).Error
	if err != nil {
		return nil, err
	}
	return issuers, nil
}

// FindInvoiceNumbersWithPrefix returns stored numbers starting with prefix,
// highest number first (descending lexicographic order).
func (r *Repository) FindInvoiceNumbersWithPrefix(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 1
	}

	var numbers []string
	err := r.db.WithContext(ctx).Raw(
		`SELECT invoice_number FROM invoices
		 WHERE invoice_number LIKE ? ESCAPE '!'
		 ORDER BY invoice_number DESC
		 LIMIT ?`,
		db.PrefixPattern(prefix),
		limit,
	).Scan(&numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *Repository) InvoiceNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE invoice_number = ?`,
		number,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
