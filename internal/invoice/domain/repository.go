package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

// ListFilter narrows invoice listings. Empty fields do not filter.
type ListFilter struct {
	Status InvoiceStatus
	Type   string
	Issuer string
	Search string
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Invoice, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status InvoiceStatus, at time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	// MarkOverdue moves up to limit sent invoices due before dueBefore to overdue.
	MarkOverdue(ctx context.Context, db *gorm.DB, dueBefore, at time.Time, limit int) (int, error)
	RecentIssuers(ctx context.Context, db *gorm.DB, limit int) ([]string, error)
}
