package persistence

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Thin row models so sqlmock queries hit the real table names without
// dragging the domain aggregates into this package.
type serviceOrderRow struct {
	ID       uint
	TenantID string
	OsNumber string
	Status   string
}

func (serviceOrderRow) TableName() string { return "service_orders" }

type invoiceRow struct {
	ID       uint
	TenantID string
	Status   string
}

func (invoiceRow) TableName() string { return "invoices" }

// newMockDatabase builds a Database over a sqlmock connection
func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return &Database{DB: gormDB}, mock, mockDB
}

func TestDatabase_WithTenant(t *testing.T) {
	t.Run("scopes queries to the tenant", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		tenantID := "550e8400-e29b-41d4-a716-446655440000"

		mock.ExpectQuery(`SELECT \* FROM "service_orders" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "os_number", "status"}).
				AddRow(1, tenantID, "OS-2026-000042", "COMPLETED"))

		var orders []serviceOrderRow
		err := db.WithTenant(tenantID).Find(&orders).Error
		require.NoError(t, err)
		require.Len(t, orders, 1)
		assert.Equal(t, "OS-2026-000042", orders[0].OsNumber)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("does not mutate the shared DB handle", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		originalDB := db.DB
		scopedDB := db.WithTenant("550e8400-e29b-41d4-a716-446655440000")

		assert.NotEqual(t, originalDB, scopedDB)
		assert.Equal(t, originalDB, db.DB)
	})

	t.Run("panics on empty tenant ID", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		// An unscoped query would read across tenants, fail loudly instead
		assert.Panics(t, func() {
			db.WithTenant("")
		})
	})

	t.Run("tenant ID is bound as a parameter", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		tenantID := "tenant'; DROP TABLE service_orders; --"

		mock.ExpectQuery(`SELECT \* FROM "service_orders" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "os_number", "status"}))

		var orders []serviceOrderRow
		err := db.WithTenant(tenantID).Find(&orders).Error
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_WithTenant_ChainedQueries(t *testing.T) {
	tenantID := "550e8400-e29b-41d4-a716-446655440000"

	t.Run("combines with further Where clauses", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE tenant_id = \$1 AND status = \$2`).
			WithArgs(tenantID, "OPEN").
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}).
				AddRow(1, tenantID, "OPEN"))

		var invoices []invoiceRow
		err := db.WithTenant(tenantID).Where("status = ?", "OPEN").Find(&invoices).Error
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps ordering", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "service_orders" WHERE tenant_id = \$1 ORDER BY os_number ASC`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "os_number", "status"}).
				AddRow(1, tenantID, "OS-2026-000001", "DRAFT").
				AddRow(2, tenantID, "OS-2026-000002", "SCHEDULED"))

		var orders []serviceOrderRow
		err := db.WithTenant(tenantID).Order("os_number ASC").Find(&orders).Error
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("keeps pagination", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "service_orders" WHERE tenant_id = \$1 LIMIT \$2 OFFSET \$3`).
			WithArgs(tenantID, 10, 5).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "os_number", "status"}).
				AddRow(6, tenantID, "OS-2026-000006", "DRAFT"))

		var orders []serviceOrderRow
		err := db.WithTenant(tenantID).Limit(10).Offset(5).Find(&orders).Error
		require.NoError(t, err)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("different tenants get distinct scopes", func(t *testing.T) {
		db, _, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		scopeA := db.WithTenant("550e8400-e29b-41d4-a716-446655440000")
		scopeB := db.WithTenant("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

		assert.NotEqual(t, scopeA, scopeB)
	})
}

func TestDatabase_Transaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		// GORM on postgres inserts via Query with a RETURNING clause
		mock.ExpectQuery(`INSERT INTO "service_orders"`).
			WithArgs("550e8400-e29b-41d4-a716-446655440000", "OS-2026-000099", "DRAFT").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		err := db.Transaction(func(tx *gorm.DB) error {
			return tx.Create(&serviceOrderRow{
				TenantID: "550e8400-e29b-41d4-a716-446655440000",
				OsNumber: "OS-2026-000099",
				Status:   "DRAFT",
			}).Error
		})

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the callback fails", func(t *testing.T) {
		db, mock, mockDB := newMockDatabase(t)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		err := db.Transaction(func(tx *gorm.DB) error {
			return assert.AnError
		})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDatabase_Ping(t *testing.T) {
	mockDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer mockDB.Close()

	// GORM may ping while opening the connection
	mock.ExpectPing()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	db := &Database{DB: gormDB}

	mock.ExpectPing()
	assert.NoError(t, db.Ping())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Close(t *testing.T) {
	db, mock, _ := newMockDatabase(t)

	mock.ExpectClose()

	assert.NoError(t, db.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDatabase_Stats(t *testing.T) {
	db, _, mockDB := newMockDatabase(t)
	defer mockDB.Close()

	stats, err := db.Stats()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, stats.OpenConnections, 0)
	assert.GreaterOrEqual(t, stats.InUse, 0)
	assert.GreaterOrEqual(t, stats.Idle, 0)
	assert.GreaterOrEqual(t, stats.WaitCount, int64(0))
	assert.GreaterOrEqual(t, stats.WaitDuration, time.Duration(0))
}
