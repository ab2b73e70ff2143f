package sequence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/invoicer/internal/migration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newTestPostgres needs a disposable database at INVOICER_TEST_POSTGRES_DSN.
func newTestPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("INVOICER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("INVOICER_TEST_POSTGRES_DSN not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	_, err = migration.RunMigrations(sqlDB)
	require.NoError(t, err)
	return conn
}

func insertNumber(t *testing.T, conn *gorm.DB, id int64, number string) {
	t.Helper()
	require.NoError(t, conn.Exec(
		`INSERT INTO invoices (id, invoice_number, type, due_date) VALUES (?, ?, 'student', ?)`,
		id, number, time.Now().UTC(),
	).Error)
}

func TestPostgresSequenceSeedsThenIncrements(t *testing.T) {
	conn := newTestPostgres(t)
	ctx := context.Background()

	pattern := "T" + uuid.NewString()[:8] + "-STU250705"
	base := time.Now().UnixNano()
	insertNumber(t, conn, base, pattern+"0041")
	insertNumber(t, conn, base+1, pattern+"0007")
	insertNumber(t, conn, base+2, pattern+"-x")
	t.Cleanup(func() {
		conn.Exec(`DELETE FROM invoices WHERE invoice_number LIKE ?`, pattern+"%")
		conn.Exec(`DELETE FROM invoice_sequences WHERE pattern = ?`, pattern)
	})

	seq := NewPostgresSequence(conn)

	first, err := seq.NextSequence(ctx, pattern)
	require.NoError(t, err)
	assert.Equal(t, int64(42), first)

	second, err := seq.NextSequence(ctx, pattern)
	require.NoError(t, err)
	assert.Equal(t, int64(43), second)
}

func TestPostgresSequenceNewPatternStartsAtOne(t *testing.T) {
	conn := newTestPostgres(t)

	pattern := "T" + uuid.NewString()[:8] + "-CLI250705"
	t.Cleanup(func() { conn.Exec(`DELETE FROM invoice_sequences WHERE pattern = ?`, pattern) })

	next, err := NewPostgresSequence(conn).NextSequence(context.Background(), pattern)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
}
