package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// LedgerService implements the FIFO stock ledger: deductions drain the
// earliest-expiry batches first, restorations refill the latest-expiry
// batches first. Both run inside a caller-owned transaction whose batch
// rows are already locked, so a failed check rolls everything back.
type LedgerService struct {
	batchRepo *repository.BatchRepository
	notifRepo *repository.NotificationRepository
	logger    *logger.Logger
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	batchRepo *repository.BatchRepository,
	notifRepo *repository.NotificationRepository,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		batchRepo: batchRepo,
		notifRepo: notifRepo,
		logger:    log,
	}
}

// DeductionResult reports what a FIFO deduction touched. The caller publishes
// events from it after the transaction commits.
type DeductionResult struct {
	FirstBatchID    string
	BatchesTouched  int
	ArchivedBatches []*repository.ProductBatch
	Notifications   []*repository.Notification
}

// DeductFIFO removes quantity units of the product, draining batches in
// ascending expiry order. Batches drained to zero are archived in the same
// transaction. Advisory notifications (archived, low stock, expiring soon)
// are written per touched batch.
//
// Returns the ID of the first batch stock was drawn from. If the product's
// batches cannot cover the full quantity the deduction fails with
// ErrInsufficientStock and no partial write survives.
func (s *LedgerService) DeductFIFO(ctx context.Context, tx *sqlx.Tx, productName string, quantity int) (*DeductionResult, error) {
	if quantity <= 0 {
		return nil, errors.InvalidQuantity("deduction quantity must be positive")
	}

	batches, err := s.batchRepo.ListActiveForUpdateTx(ctx, tx, productName, true)
	if err != nil {
		return nil, err
	}

	result := &DeductionResult{}
	remaining := quantity
	now := time.Now()

	for _, batch := range batches {
		if remaining == 0 {
			break
		}

		take := batch.Quantity
		if take > remaining {
			take = remaining
		}
		if take == 0 {
			continue
		}

		if result.FirstBatchID == "" {
			result.FirstBatchID = batch.ID
		}

		batch.Quantity -= take
		remaining -= take
		result.BatchesTouched++

		if err := s.batchRepo.UpdateQuantityTx(ctx, tx, batch.ID, batch.Quantity); err != nil {
			return nil, err
		}

		if batch.Quantity == 0 {
			archivedAt, err := s.batchRepo.ArchiveTx(ctx, tx, batch.ID)
			if err != nil {
				return nil, err
			}
			batch.IsArchived = true
			batch.ArchivedAt = &archivedAt
			result.ArchivedBatches = append(result.ArchivedBatches, batch)

			n, err := s.notify(ctx, tx, repository.NotifTypeArchived, batch,
				fmt.Sprintf("Batch %s of %s is out of stock and has been archived", batch.ID, batch.ProductName))
			if err != nil {
				return nil, err
			}
			result.Notifications = append(result.Notifications, n)
			continue
		}

		if batch.IsLowStock() {
			n, err := s.notify(ctx, tx, repository.NotifTypeLowStock, batch,
				fmt.Sprintf("Low stock: batch %s of %s has %d units left", batch.ID, batch.ProductName, batch.Quantity))
			if err != nil {
				return nil, err
			}
			result.Notifications = append(result.Notifications, n)
		}

		if batch.IsExpiringSoon(now) {
			n, err := s.notify(ctx, tx, repository.NotifTypeExpiringSoon, batch,
				fmt.Sprintf("Batch %s of %s expires on %s", batch.ID, batch.ProductName, batch.ExpiryDate.Format("2006-01-02")))
			if err != nil {
				return nil, err
			}
			result.Notifications = append(result.Notifications, n)
		}
	}

	if remaining > 0 {
		return nil, errors.InsufficientStock(productName, quantity, quantity-remaining)
	}

	s.logger.Debug().
		Str("product", productName).
		Int("quantity", quantity).
		Int("batches_touched", result.BatchesTouched).
		Str("first_batch_id", result.FirstBatchID).
		Msg("stock deducted")

	return result, nil
}

// Restore returns quantity units to the product, refilling batches in
// descending expiry order up to each batch's capacity headroom. Stock that
// cannot be placed anywhere fails the whole restoration with
// ErrRestoreInconsistency.
func (s *LedgerService) Restore(ctx context.Context, tx *sqlx.Tx, productName string, quantity int) error {
	if quantity <= 0 {
		return errors.InvalidQuantity("restore quantity must be positive")
	}

	batches, err := s.batchRepo.ListActiveForUpdateTx(ctx, tx, productName, false)
	if err != nil {
		return err
	}

	remaining := quantity

	// Walk newest expiry first: deduction drained the oldest batches, so
	// returned stock goes back where it came from last.
	for i := len(batches) - 1; i >= 0 && remaining > 0; i-- {
		batch := batches[i]

		headroom := repository.MaxStock - batch.Quantity
		if headroom <= 0 {
			continue
		}

		put := headroom
		if put > remaining {
			put = remaining
		}

		batch.Quantity += put
		remaining -= put

		if err := s.batchRepo.UpdateQuantityTx(ctx, tx, batch.ID, batch.Quantity); err != nil {
			return err
		}
	}

	if remaining > 0 {
		return errors.RestoreInconsistency(productName, remaining)
	}

	s.logger.Debug().
		Str("product", productName).
		Int("quantity", quantity).
		Msg("stock restored")

	return nil
}

func (s *LedgerService) notify(ctx context.Context, tx *sqlx.Tx, notifType string, batch *repository.ProductBatch, message string) (*repository.Notification, error) {
	n := &repository.Notification{
		NotifType:   notifType,
		BatchID:     batch.ID,
		Message:     message,
		ProductName: batch.ProductName,
	}
	if err := s.notifRepo.CreateTx(ctx, tx, n); err != nil {
		return nil, err
	}
	return n, nil
}
