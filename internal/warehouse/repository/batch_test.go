package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/pkg/database"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/testutil"
)

func newTestRepo(t *testing.T) (*repository.BatchRepository, *testutil.MockDB) {
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	db := &database.DB{DB: mockDB.DB}

	return repository.NewBatchRepository(db), mockDB
}

func TestIsLowStock(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		want     bool
	}{
		{"well above threshold", 800, false},
		{"just above threshold", repository.LowStockThreshold + 1, false},
		{"exactly at threshold", repository.LowStockThreshold, true},
		{"below threshold", 100, true},
		{"zero", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &repository.ProductBatch{Quantity: tt.quantity}
			assert.Equal(t, tt.want, batch.IsLowStock())
		})
	}
}

func TestLowStockThreshold(t *testing.T) {
	// 35% of 1000, floored.
	assert.Equal(t, 350, repository.LowStockThreshold)
}

func TestIsExpiringSoon(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		expiry time.Time
		want   bool
	}{
		{"already expired", now.AddDate(0, 0, -1), true},
		{"expires today", now, true},
		{"inside the window", now.AddDate(0, 0, 15), true},
		{"window boundary", now.AddDate(0, 0, repository.ExpiryWarningDays), true},
		{"just outside the window", now.AddDate(0, 0, repository.ExpiryWarningDays+1), false},
		{"far out", now.AddDate(1, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &repository.ProductBatch{ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, batch.IsExpiringSoon(now))
		})
	}
}

func TestValidateQuantity(t *testing.T) {
	tests := []struct {
		name     string
		quantity int
		wantErr  bool
	}{
		{"zero is allowed", 0, false},
		{"mid range", 500, false},
		{"at capacity", repository.MaxStock, false},
		{"negative", -1, true},
		{"over capacity", repository.MaxStock + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := &repository.ProductBatch{Quantity: tt.quantity}
			err := batch.ValidateQuantity()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestBatchRepository_GetByID_NotFound(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	mockDB.ExpectQuery(`SELECT * FROM product_batches WHERE id = $1`).
		WithArgs("missing").
		WillReturnRows(testutil.MockRows(testutil.BatchColumns()...))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_GetByID(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	now := time.Now()
	expiry := now.AddDate(0, 6, 0)

	mockDB.ExpectQuery(`SELECT * FROM product_batches WHERE id = $1`).
		WithArgs("B-001").
		WillReturnRows(testutil.MockRows(testutil.BatchColumns()...).
			AddRow("B-001", "480012345678", "Paracetamol 500mg", "blister pack", 750, expiry, false, nil, now, now))

	batch, err := repo.GetByID(context.Background(), "B-001")
	require.NoError(t, err)
	assert.Equal(t, "B-001", batch.ID)
	assert.Equal(t, "Paracetamol 500mg", batch.ProductName)
	assert.Equal(t, 750, batch.Quantity)
	assert.False(t, batch.IsArchived)

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_List_ExcludesArchivedByDefault(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	now := time.Now()

	mockDB.ExpectQuery(`SELECT * FROM product_batches WHERE is_archived = false ORDER BY expiry_date, id`).
		WillReturnRows(testutil.MockRows(testutil.BatchColumns()...).
			AddRow("B-001", "4800111", "Aspirin 100mg", "", 200, now.AddDate(0, 1, 0), false, nil, now, now).
			AddRow("B-002", "4800222", "Aspirin 100mg", "", 300, now.AddDate(0, 3, 0), false, nil, now, now))

	batches, err := repo.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, batches, 2)
	assert.Equal(t, "B-001", batches[0].ID)

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_GroupedTotals(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	mockDB.Mock.ExpectQuery("SELECT product_name, COALESCE").
		WillReturnRows(testutil.MockRows("product_name", "total_quantity").
			AddRow("Aspirin 100mg", 500).
			AddRow("Paracetamol 500mg", 1200))

	totals, err := repo.GroupedTotals(context.Background())
	require.NoError(t, err)
	require.Len(t, totals, 2)
	assert.Equal(t, "Aspirin 100mg", totals[0].ProductName)
	assert.Equal(t, 500, totals[0].TotalQuantity)

	mockDB.ExpectationsWereMet(t)
}

func TestBatchRepository_Update_NotFound(t *testing.T) {
	repo, mockDB := newTestRepo(t)

	mockDB.Mock.ExpectExec("UPDATE product_batches SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &repository.ProductBatch{
		ID:          "missing",
		BarcodeNo:   "4800999",
		ProductName: "Unknown",
		Quantity:    10,
		ExpiryDate:  time.Now().AddDate(0, 1, 0),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	mockDB.ExpectationsWereMet(t)
}
