package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/wsms/warehouse-backend/internal/warehouse/events"
	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/pkg/database"
	"github.com/wsms/warehouse-backend/pkg/errors"
	"github.com/wsms/warehouse-backend/pkg/logger"
)

// BatchService handles batch intake and lifecycle business logic
type BatchService struct {
	db        *database.DB
	batchRepo *repository.BatchRepository
	notifRepo *repository.NotificationRepository
	publisher *events.StockEventPublisher
	logger    *logger.Logger
}

// NewBatchService creates a new batch service
func NewBatchService(
	db *database.DB,
	batchRepo *repository.BatchRepository,
	notifRepo *repository.NotificationRepository,
	publisher *events.StockEventPublisher,
	log *logger.Logger,
) *BatchService {
	return &BatchService{
		db:        db,
		batchRepo: batchRepo,
		notifRepo: notifRepo,
		publisher: publisher,
		logger:    log,
	}
}

// Create takes in a new batch
func (s *BatchService) Create(ctx context.Context, batch *repository.ProductBatch) error {
	if err := batch.ValidateQuantity(); err != nil {
		return err
	}
	if !batch.ExpiryDate.After(time.Now()) {
		return errors.BadRequest("expiry date must be in the future")
	}

	if err := s.batchRepo.Create(ctx, batch); err != nil {
		return err
	}

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("product", batch.ProductName).
		Int("quantity", batch.Quantity).
		Msg("batch created")

	return nil
}

// Get gets a batch by ID
func (s *BatchService) Get(ctx context.Context, id string) (*repository.ProductBatch, error) {
	return s.batchRepo.GetByID(ctx, id)
}

// GetByBarcode gets the earliest-expiry batch carrying the barcode
func (s *BatchService) GetByBarcode(ctx context.Context, barcodeNo string) (*repository.ProductBatch, error) {
	return s.batchRepo.GetByBarcode(ctx, barcodeNo)
}

// List lists batches
func (s *BatchService) List(ctx context.Context, includeArchived bool) ([]*repository.ProductBatch, error) {
	return s.batchRepo.List(ctx, includeArchived)
}

// ListByProduct lists batches of one product
func (s *BatchService) ListByProduct(ctx context.Context, productName string, includeArchived bool) ([]*repository.ProductBatch, error) {
	return s.batchRepo.ListByProduct(ctx, productName, includeArchived)
}

// Update updates an active batch's fields
func (s *BatchService) Update(ctx context.Context, batch *repository.ProductBatch) error {
	current, err := s.batchRepo.GetByID(ctx, batch.ID)
	if err != nil {
		return err
	}
	if current.IsArchived {
		return errors.AlreadyArchived(batch.ID)
	}

	if err := batch.ValidateQuantity(); err != nil {
		return err
	}

	return s.batchRepo.Update(ctx, batch)
}

// Archive manually archives a batch regardless of its remaining quantity.
// The ledger archives automatically when a deduction drains a batch; this
// covers spoilage, recalls, and counting errors.
func (s *BatchService) Archive(ctx context.Context, id string) (*repository.ProductBatch, error) {
	var (
		batch *repository.ProductBatch
		notif *repository.Notification
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		batch, err = s.batchRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if batch.IsArchived {
			return errors.AlreadyArchived(batch.ID)
		}

		archivedAt, err := s.batchRepo.ArchiveTx(ctx, tx, id)
		if err != nil {
			return err
		}
		batch.IsArchived = true
		batch.ArchivedAt = &archivedAt

		notif = &repository.Notification{
			NotifType:   repository.NotifTypeArchived,
			BatchID:     batch.ID,
			Message:     fmt.Sprintf("Batch %s of %s has been archived", batch.ID, batch.ProductName),
			ProductName: batch.ProductName,
		}
		return s.notifRepo.CreateTx(ctx, tx, notif)
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishBatchArchived(ctx, batch.ID, batch.ProductName, *batch.ArchivedAt)
	s.publisher.PublishNotificationCreated(ctx, notif)

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("product", batch.ProductName).
		Msg("batch archived")

	return batch, nil
}

// Reactivate brings an archived batch back into circulation with a fresh
// quantity and expiry date
func (s *BatchService) Reactivate(ctx context.Context, id string, quantity int, expiry time.Time) (*repository.ProductBatch, error) {
	if quantity <= 0 {
		return nil, errors.InvalidQuantity("reactivation quantity must be positive")
	}
	if quantity > repository.MaxStock {
		return nil, errors.InvalidQuantity("reactivation quantity cannot exceed maximum stock")
	}
	if !expiry.After(time.Now()) {
		return nil, errors.BadRequest("expiry date must be in the future")
	}

	var (
		batch  *repository.ProductBatch
		notifs []*repository.Notification
	)

	err := s.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		batch, err = s.batchRepo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if !batch.IsArchived {
			return errors.AlreadyActive(batch.ID)
		}

		if err := s.batchRepo.ReactivateTx(ctx, tx, id, quantity, expiry); err != nil {
			return err
		}
		batch.IsArchived = false
		batch.ArchivedAt = nil
		batch.Quantity = quantity
		batch.ExpiryDate = expiry

		// A batch can come back already below threshold or close to expiry.
		if batch.IsLowStock() {
			n := &repository.Notification{
				NotifType:   repository.NotifTypeLowStock,
				BatchID:     batch.ID,
				Message:     fmt.Sprintf("Low stock: batch %s of %s has %d units left", batch.ID, batch.ProductName, batch.Quantity),
				ProductName: batch.ProductName,
			}
			if err := s.notifRepo.CreateTx(ctx, tx, n); err != nil {
				return err
			}
			notifs = append(notifs, n)
		}
		if batch.IsExpiringSoon(time.Now()) {
			n := &repository.Notification{
				NotifType:   repository.NotifTypeExpiringSoon,
				BatchID:     batch.ID,
				Message:     fmt.Sprintf("Batch %s of %s expires on %s", batch.ID, batch.ProductName, batch.ExpiryDate.Format("2006-01-02")),
				ProductName: batch.ProductName,
			}
			if err := s.notifRepo.CreateTx(ctx, tx, n); err != nil {
				return err
			}
			notifs = append(notifs, n)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishBatchReactivated(ctx, batch)
	for _, n := range notifs {
		s.publisher.PublishNotificationCreated(ctx, n)
	}

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("product", batch.ProductName).
		Int("quantity", quantity).
		Msg("batch reactivated")

	return batch, nil
}

// NotificationService exposes the advisory notification feed
type NotificationService struct {
	notifRepo *repository.NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(notifRepo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifRepo: notifRepo}
}

// List lists notifications newest first, optionally filtered by type
func (s *NotificationService) List(ctx context.Context, notifType string, limit int) ([]*repository.Notification, error) {
	return s.notifRepo.List(ctx, notifType, limit)
}
