package sequence

import (
	"context"

	"gorm.io/gorm"
)

// PostgresSequence calls the get_next_invoice_sequence function installed by
// the migrations. The function increments a per-pattern row, seeding it from
// the highest suffix already stored.
type PostgresSequence struct {
	db *gorm.DB
}

func NewPostgresSequence(db *gorm.DB) *PostgresSequence {
	return &PostgresSequence{db: db}
}

func (s *PostgresSequence) NextSequence(ctx context.Context, pattern string) (int64, error) {
	var next int64
	err := s.db.WithContext(ctx).
		Raw(`SELECT get_next_invoice_sequence(?)`, pattern).
		Scan(&next).Error
	if err != nil {
		return 0, err
	}
	return next, nil
}
