package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/wsms/warehouse-backend/pkg/database"
	"github.com/wsms/warehouse-backend/pkg/errors"
)

// Stock limits shared by the ledger engine and lifecycle controller.
const (
	// MaxStock is the hard per-batch capacity.
	MaxStock = 1000

	// LowStockThreshold triggers a low-stock notification at 35% of capacity.
	LowStockThreshold = MaxStock * 35 / 100

	// ExpiryWarningDays is the expiring-soon lookahead window.
	ExpiryWarningDays = 30
)

// ProductBatch is a dated lot of one product. Batches sharing a product name
// form the group over which FIFO ordering and availability checks operate,
// keyed ascending by expiry date.
type ProductBatch struct {
	ID            string     `db:"id" json:"id"`
	BarcodeNo     string     `db:"barcode_no" json:"barcode_no"`
	ProductName   string     `db:"product_name" json:"product_name"`
	ProductDetail string     `db:"product_detail" json:"product_detail"`
	Quantity      int        `db:"quantity" json:"quantity"`
	ExpiryDate    time.Time  `db:"expiry_date" json:"expiry_date"`
	IsArchived    bool       `db:"is_archived" json:"is_archived"`
	ArchivedAt    *time.Time `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// IsLowStock reports whether the batch is at or below the low-stock threshold.
func (b *ProductBatch) IsLowStock() bool {
	return b.Quantity <= LowStockThreshold
}

// IsExpiringSoon reports whether the batch expires within the warning window.
func (b *ProductBatch) IsExpiringSoon(now time.Time) bool {
	return !now.AddDate(0, 0, ExpiryWarningDays).Before(b.ExpiryDate)
}

// ValidateQuantity checks the batch quantity invariant: 0 <= qty <= MaxStock.
func (b *ProductBatch) ValidateQuantity() error {
	if b.Quantity < 0 {
		return errors.InvalidQuantity("batch quantity cannot be negative")
	}
	if b.Quantity > MaxStock {
		return errors.InvalidQuantity("batch quantity cannot exceed maximum stock")
	}
	return nil
}

// BatchRepository handles product batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new batch
func (r *BatchRepository) Create(ctx context.Context, batch *ProductBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	query := `
		INSERT INTO product_batches (
			id, barcode_no, product_name, product_detail, quantity, expiry_date, is_archived
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.BarcodeNo, batch.ProductName, batch.ProductDetail,
		batch.Quantity, batch.ExpiryDate, batch.IsArchived,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
}

// GetByID gets a batch by ID
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*ProductBatch, error) {
	var batch ProductBatch
	query := `SELECT * FROM product_batches WHERE id = $1`
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// GetByBarcode gets a batch by barcode number
func (r *BatchRepository) GetByBarcode(ctx context.Context, barcodeNo string) (*ProductBatch, error) {
	var batch ProductBatch
	query := `SELECT * FROM product_batches WHERE barcode_no = $1 ORDER BY expiry_date LIMIT 1`
	if err := r.db.GetContext(ctx, &batch, query, barcodeNo); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// List lists batches ordered by expiry. Archived batches are excluded unless
// includeArchived is set.
func (r *BatchRepository) List(ctx context.Context, includeArchived bool) ([]*ProductBatch, error) {
	var batches []*ProductBatch
	query := `SELECT * FROM product_batches`
	if !includeArchived {
		query += ` WHERE is_archived = false`
	}
	query += ` ORDER BY expiry_date, id`

	if err := r.db.SelectContext(ctx, &batches, query); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListByProduct lists batches of one product ordered by expiry
func (r *BatchRepository) ListByProduct(ctx context.Context, productName string, includeArchived bool) ([]*ProductBatch, error) {
	var batches []*ProductBatch
	query := `SELECT * FROM product_batches WHERE product_name = $1`
	if !includeArchived {
		query += ` AND is_archived = false`
	}
	query += ` ORDER BY expiry_date, id`

	if err := r.db.SelectContext(ctx, &batches, query, productName); err != nil {
		return nil, err
	}
	return batches, nil
}

// Update updates a batch's descriptive fields and quantity
func (r *BatchRepository) Update(ctx context.Context, batch *ProductBatch) error {
	query := `
		UPDATE product_batches SET
			barcode_no = $2, product_name = $3, product_detail = $4,
			quantity = $5, expiry_date = $6, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		batch.ID, batch.BarcodeNo, batch.ProductName, batch.ProductDetail,
		batch.Quantity, batch.ExpiryDate,
	)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// GroupedTotal is a per-product aggregate of active stock
type GroupedTotal struct {
	ProductName   string `db:"product_name" json:"product_name"`
	TotalQuantity int    `db:"total_quantity" json:"total_quantity"`
}

// GroupedTotals sums active stock per product name
func (r *BatchRepository) GroupedTotals(ctx context.Context) ([]*GroupedTotal, error) {
	var totals []*GroupedTotal
	query := `
		SELECT product_name, COALESCE(SUM(quantity), 0) AS total_quantity
		FROM product_batches
		WHERE is_archived = false
		GROUP BY product_name
		ORDER BY product_name
	`
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, err
	}
	return totals, nil
}

// Transactional queries used by the ledger engine. All rows of the product are
// locked FOR UPDATE so concurrent mutations of the same product serialize.

// ListActiveForUpdateTx fetches the non-archived batches of a product inside
// the given transaction, ordered ascending by expiry, with row locks held.
// With withStockOnly set, batches at zero quantity are skipped.
func (r *BatchRepository) ListActiveForUpdateTx(ctx context.Context, tx *sqlx.Tx, productName string, withStockOnly bool) ([]*ProductBatch, error) {
	var batches []*ProductBatch
	query := `
		SELECT * FROM product_batches
		WHERE product_name = $1 AND is_archived = false
	`
	if withStockOnly {
		query += ` AND quantity > 0`
	}
	query += ` ORDER BY expiry_date, id FOR UPDATE`

	if err := tx.SelectContext(ctx, &batches, query, productName); err != nil {
		return nil, err
	}
	return batches, nil
}

// GetForUpdateTx fetches a single batch by ID with its row locked
func (r *BatchRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*ProductBatch, error) {
	var batch ProductBatch
	query := `SELECT * FROM product_batches WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &batch, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("batch")
		}
		return nil, err
	}
	return &batch, nil
}

// UpdateQuantityTx persists a quantity change for one batch
func (r *BatchRepository) UpdateQuantityTx(ctx context.Context, tx *sqlx.Tx, id string, quantity int) error {
	query := `UPDATE product_batches SET quantity = $2, updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id, quantity)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("batch")
	}

	return nil
}

// ArchiveTx marks a batch archived. The conditional WHERE keeps archival a
// one-way transition even if the caller's snapshot is stale.
func (r *BatchRepository) ArchiveTx(ctx context.Context, tx *sqlx.Tx, id string) (time.Time, error) {
	var archivedAt time.Time
	query := `
		UPDATE product_batches
		SET is_archived = true, archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND is_archived = false
		RETURNING archived_at
	`
	if err := tx.QueryRowxContext(ctx, query, id).Scan(&archivedAt); err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, errors.AlreadyArchived(id)
		}
		return time.Time{}, err
	}
	return archivedAt, nil
}

// ReactivateTx clears archived state and overwrites quantity and expiry
func (r *BatchRepository) ReactivateTx(ctx context.Context, tx *sqlx.Tx, id string, quantity int, expiry time.Time) error {
	query := `
		UPDATE product_batches
		SET is_archived = false, archived_at = NULL, quantity = $2, expiry_date = $3, updated_at = NOW()
		WHERE id = $1 AND is_archived = true
	`
	result, err := tx.ExecContext(ctx, query, id, quantity, expiry)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.AlreadyActive(id)
	}

	return nil
}

// TotalActiveStockTx sums the stock of a product's non-archived batches inside
// the transaction
func (r *BatchRepository) TotalActiveStockTx(ctx context.Context, tx *sqlx.Tx, productName string) (int, error) {
	var total sql.NullInt64
	query := `
		SELECT SUM(quantity) FROM product_batches
		WHERE product_name = $1 AND is_archived = false AND quantity > 0
	`
	if err := tx.GetContext(ctx, &total, query, productName); err != nil {
		return 0, err
	}
	if !total.Valid {
		return 0, nil
	}
	return int(total.Int64), nil
}

// EarliestBlockingTx returns the earliest-expiry batch of the product that
// still holds stock and expires before the given date, or nil when none does.
// Used by the FIFO-at-write ordering gate.
func (r *BatchRepository) EarliestBlockingTx(ctx context.Context, tx *sqlx.Tx, productName string, before time.Time) (*ProductBatch, error) {
	var batch ProductBatch
	query := `
		SELECT * FROM product_batches
		WHERE product_name = $1 AND expiry_date < $2 AND quantity > 0 AND is_archived = false
		ORDER BY expiry_date, id
		LIMIT 1
	`
	if err := tx.GetContext(ctx, &batch, query, productName, before); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}
