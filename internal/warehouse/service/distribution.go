package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/wsms/warehouse-backend/internal/warehouse/events"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/pkg/database"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// DistributionService handles distribution record business logic. Every
// stock-mutating operation runs in a single transaction: the pre-checks,
// the ledger walk, and the record write commit or roll back together.
type DistributionService struct {
	db        *database.DB
	ledger    *LedgerService
	batchRepo *repository.BatchRepository
	distRepo  *repository.DistributionRepository
	publisher *events.StockEventPublisher
	logger    *logger.Logger
}

// NewDistributionService creates a new distribution service
func NewDistributionService(
	db *database.DB,
	ledger *LedgerService,
	batchRepo *repository.BatchRepository,
	distRepo *repository.DistributionRepository,
	publisher *events.StockEventPublisher,
	log *logger.Logger,
) *DistributionService {
	return &DistributionService{
		db:        db,
		ledger:    ledger,
		batchRepo: batchRepo,
		distRepo:  distRepo,
		publisher: publisher,
		logger:    log,
	}
}

// Create fulfils a distribution request against the batch's product group.
//
// The selected batch names the product; the deduction itself is FIFO across
// all of the product's batches. Two gates run before any write: the selected
// batch must be the oldest one still holding stock (no skipping ahead of an
// earlier expiry), and the product's total active stock must cover the
// quantity. The record is anchored to the batch the first unit came from.
//
// The returned warning is non-empty when the anchor batch ends up at or
// below the low-stock threshold.
func (s *DistributionService) Create(ctx context.Context, batchID string, quantity int) (*repository.DistributionRecord, string, error) {
	if quantity <= 0 {
		return nil, "", errors.InvalidQuantity("distribution quantity must be positive")
	}

	var (
		record    *repository.DistributionRecord
		deduction *DeductionResult
		warning   string
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		batch, err := s.batchRepo.GetForUpdateTx(ctx, tx, batchID)
		if err != nil {
			return err
		}
		if batch.IsArchived {
			return errors.AlreadyArchived(batch.ID)
		}

		blocking, err := s.batchRepo.EarliestBlockingTx(ctx, tx, batch.ProductName, batch.ExpiryDate)
		if err != nil {
			return err
		}
		if blocking != nil && blocking.ID != batch.ID {
			return errors.OrderingViolation(batch.ExpiryDate, blocking.ExpiryDate)
		}

		available, err := s.batchRepo.TotalActiveStockTx(ctx, tx, batch.ProductName)
		if err != nil {
			return err
		}
		if available < quantity {
			return errors.InsufficientStock(batch.ProductName, quantity, available)
		}

		deduction, err = s.ledger.DeductFIFO(ctx, tx, batch.ProductName, quantity)
		if err != nil {
			return err
		}

		record = &repository.DistributionRecord{
			BatchID:     deduction.FirstBatchID,
			Quantity:    quantity,
			IsActive:    true,
			ProductName: batch.ProductName,
		}
		if err := s.distRepo.CreateTx(ctx, tx, record); err != nil {
			return err
		}

		anchor, err := s.batchRepo.GetForUpdateTx(ctx, tx, deduction.FirstBatchID)
		if err != nil {
			return err
		}
		record.BarcodeNo = anchor.BarcodeNo
		if !anchor.IsArchived && anchor.IsLowStock() {
			warning = fmt.Sprintf("Low stock: %d units left in batch %s of %s",
				anchor.Quantity, anchor.ID, anchor.ProductName)
		}

		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.publishDeduction(ctx, record.ProductName, quantity, deduction)
	s.publisher.PublishDistributionCreated(ctx, record)

	s.logger.Info().
		Str("distribution_id", record.ID).
		Str("product", record.ProductName).
		Int("quantity", quantity).
		Msg("distribution created")

	return record, warning, nil
}

// Amend changes an active record's quantity. The old quantity is restored
// and the new quantity deducted FIFO inside one transaction, so a failed
// deduction also undoes the restoration. The record is re-anchored to the
// first batch the fresh deduction drew from.
func (s *DistributionService) Amend(ctx context.Context, id string, newQuantity int) (*repository.DistributionRecord, error) {
	if newQuantity <= 0 {
		return nil, errors.InvalidQuantity("distribution quantity must be positive")
	}

	var (
		record      *repository.DistributionRecord
		deduction   *DeductionResult
		oldQuantity int
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		record, err = s.distRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !record.IsActive {
			return errors.AlreadyRetired(record.ID)
		}

		oldQuantity = record.Quantity
		if newQuantity == oldQuantity {
			deduction = nil
			return nil
		}

		if err := s.ledger.Restore(ctx, tx, record.ProductName, oldQuantity); err != nil {
			return err
		}

		available, err := s.batchRepo.TotalActiveStockTx(ctx, tx, record.ProductName)
		if err != nil {
			return err
		}
		if available < newQuantity {
			return errors.InsufficientStock(record.ProductName, newQuantity, available)
		}

		deduction, err = s.ledger.DeductFIFO(ctx, tx, record.ProductName, newQuantity)
		if err != nil {
			return err
		}

		if err := s.distRepo.UpdateTx(ctx, tx, record.ID, deduction.FirstBatchID, newQuantity); err != nil {
			return err
		}
		record.BatchID = deduction.FirstBatchID
		record.Quantity = newQuantity

		return nil
	})
	if err != nil {
		return nil, err
	}

	if deduction != nil {
		s.publisher.PublishStockRestored(ctx, record.ProductName, oldQuantity)
		s.publishDeduction(ctx, record.ProductName, newQuantity, deduction)
		s.publisher.PublishDistributionAmended(ctx, record, oldQuantity)

		s.logger.Info().
			Str("distribution_id", record.ID).
			Str("product", record.ProductName).
			Int("old_quantity", oldQuantity).
			Int("new_quantity", newQuantity).
			Msg("distribution amended")
	}

	return record, nil
}

// Retire flips an active record inactive. The distributed stock stays
// deducted: retirement closes the paper trail, it does not undo the handout.
func (s *DistributionService) Retire(ctx context.Context, id string) (*repository.DistributionRecord, error) {
	record, err := s.distRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !record.IsActive {
		return nil, errors.AlreadyRetired(record.ID)
	}

	if err := s.distRepo.Retire(ctx, id); err != nil {
		return nil, err
	}
	record.IsActive = false

	s.publisher.PublishDistributionRetired(ctx, record)

	s.logger.Info().
		Str("distribution_id", record.ID).
		Str("product", record.ProductName).
		Msg("distribution retired")

	return record, nil
}

// Delete physically removes a retired record. Active records cannot be
// deleted, only retired.
func (s *DistributionService) Delete(ctx context.Context, id string) error {
	record, err := s.distRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if record.IsActive {
		return errors.DeleteForbidden("cannot delete an active distribution record, retire it first")
	}

	return s.distRepo.DeleteRetired(ctx, id)
}

// Get gets a distribution record by ID
func (s *DistributionService) Get(ctx context.Context, id string) (*repository.DistributionRecord, error) {
	return s.distRepo.GetByID(ctx, id)
}

// List lists distribution records
func (s *DistributionService) List(ctx context.Context, includeRetired bool) ([]*repository.DistributionRecord, error) {
	return s.distRepo.List(ctx, includeRetired)
}

// publishDeduction fans out the events a committed deduction produced
func (s *DistributionService) publishDeduction(ctx context.Context, productName string, quantity int, deduction *DeductionResult) {
	if deduction == nil {
		return
	}

	s.publisher.PublishStockDeducted(ctx, productName, quantity, deduction.FirstBatchID, deduction.BatchesTouched)

	for _, batch := range deduction.ArchivedBatches {
		archivedAt := batch.UpdatedAt
		if batch.ArchivedAt != nil {
			archivedAt = *batch.ArchivedAt
		}
		s.publisher.PublishBatchArchived(ctx, batch.ID, batch.ProductName, archivedAt)
	}

	for _, n := range deduction.Notifications {
		s.publisher.PublishNotificationCreated(ctx, n)
	}
}
