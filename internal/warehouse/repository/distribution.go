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

// DistributionRecord is a fulfilled stock allocation. BatchID anchors the
// record to the earliest-expiry batch its stock was drawn from; the actual
// deduction may have spanned several batches of the same product.
type DistributionRecord struct {
	ID        string    `db:"id" json:"id"`
	BatchID   string    `db:"batch_id" json:"batch_id"`
	Quantity  int       `db:"quantity" json:"quantity"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Joined from the anchor batch.
	ProductName string `db:"product_name" json:"product_name"`
	BarcodeNo   string `db:"barcode_no" json:"barcode_no"`
}

// DistributionRepository handles distribution record persistence
type DistributionRepository struct {
	db *database.DB
}

// NewDistributionRepository creates a new distribution repository
func NewDistributionRepository(db *database.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

const distributionSelect = `
	SELECT d.id, d.batch_id, d.quantity, d.is_active, d.created_at, d.updated_at,
	       b.product_name, b.barcode_no
	FROM distributions d
	JOIN product_batches b ON b.id = d.batch_id
`

// CreateTx inserts a distribution record inside the allocation transaction
func (r *DistributionRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, record *DistributionRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO distributions (id, batch_id, quantity, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	return tx.QueryRowxContext(ctx, query,
		record.ID, record.BatchID, record.Quantity, record.IsActive,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
}

// GetByID gets a distribution record with its anchor batch's product fields
func (r *DistributionRepository) GetByID(ctx context.Context, id string) (*DistributionRecord, error) {
	var record DistributionRecord
	query := distributionSelect + ` WHERE d.id = $1`
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("distribution record")
		}
		return nil, err
	}
	return &record, nil
}

// GetForUpdateTx fetches a distribution record with its row locked
func (r *DistributionRepository) GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*DistributionRecord, error) {
	var record DistributionRecord
	query := distributionSelect + ` WHERE d.id = $1 FOR UPDATE OF d`
	if err := tx.GetContext(ctx, &record, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("distribution record")
		}
		return nil, err
	}
	return &record, nil
}

// List lists distribution records newest first. Retired records are excluded
// unless includeRetired is set.
func (r *DistributionRepository) List(ctx context.Context, includeRetired bool) ([]*DistributionRecord, error) {
	var records []*DistributionRecord
	query := distributionSelect
	if !includeRetired {
		query += ` WHERE d.is_active = true`
	}
	query += ` ORDER BY d.created_at DESC, d.id`

	if err := r.db.SelectContext(ctx, &records, query); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateTx persists an amended quantity and anchor batch inside the
// restore-then-deduct transaction
func (r *DistributionRepository) UpdateTx(ctx context.Context, tx *sqlx.Tx, id, batchID string, quantity int) error {
	query := `UPDATE distributions SET batch_id = $2, quantity = $3, updated_at = NOW() WHERE id = $1`
	result, err := tx.ExecContext(ctx, query, id, batchID, quantity)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("distribution record")
	}

	return nil
}

// Retire flips an active record inactive. A zero-row update means the record
// was already retired.
func (r *DistributionRepository) Retire(ctx context.Context, id string) error {
	query := `UPDATE distributions SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.AlreadyRetired(id)
	}

	return nil
}

// DeleteRetired physically removes a retired record. The conditional WHERE
// makes deleting an active record impossible at the SQL level.
func (r *DistributionRepository) DeleteRetired(ctx context.Context, id string) error {
	query := `DELETE FROM distributions WHERE id = $1 AND is_active = false`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.DeleteForbidden("cannot delete an active distribution record, retire it first")
	}

	return nil
}

// GroupedActiveTotals sums active distributed quantity per product name
func (r *DistributionRepository) GroupedActiveTotals(ctx context.Context) ([]*GroupedTotal, error) {
	var totals []*GroupedTotal
	query := `
		SELECT b.product_name, COALESCE(SUM(d.quantity), 0) AS total_quantity
		FROM distributions d
		JOIN product_batches b ON b.id = d.batch_id
		WHERE d.is_active = true
		GROUP BY b.product_name
		ORDER BY b.product_name
	`
	if err := r.db.SelectContext(ctx, &totals, query); err != nil {
		return nil, err
	}
	return totals, nil
}
