package events

import (
	"context"
	"time"

	"github.com/wsms/warehouse-backend/internal/warehouse/repository"
	"github.com/wsms/warehouse-backend/pkg/logger"
	"github.com/wsms/warehouse-backend/pkg/messaging"
)

// StockEventPublisher publishes stock ledger and distribution events.
// A nil publisher is valid and drops every event, so services keep working
// when RabbitMQ is not configured.
type StockEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewStockEventPublisher creates a new stock event publisher
func NewStockEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*StockEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeStockEvents, "warehouse-service", log)
	if err != nil {
		return nil, err
	}

	return &StockEventPublisher{
		publisher: publisher,
		logger:    log,
	}, nil
}

// PublishStockDeducted publishes a stock deducted event
func (p *StockEventPublisher) PublishStockDeducted(ctx context.Context, productName string, quantity int, firstBatchID string, batchesTouched int) {
	if p == nil {
		return
	}

	data := messaging.StockDeductedEvent{
		ProductName:    productName,
		Quantity:       quantity,
		FirstBatchID:   firstBatchID,
		BatchesTouched: batchesTouched,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockDeducted, data); err != nil {
		p.logger.Error().Err(err).Str("product", productName).Msg("failed to publish stock deducted event")
	}
}

// PublishStockRestored publishes a stock restored event
func (p *StockEventPublisher) PublishStockRestored(ctx context.Context, productName string, quantity int) {
	if p == nil {
		return
	}

	data := messaging.StockRestoredEvent{
		ProductName: productName,
		Quantity:    quantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventStockRestored, data); err != nil {
		p.logger.Error().Err(err).Str("product", productName).Msg("failed to publish stock restored event")
	}
}

// PublishBatchArchived publishes a batch archived event
func (p *StockEventPublisher) PublishBatchArchived(ctx context.Context, batchID, productName string, archivedAt time.Time) {
	if p == nil {
		return
	}

	data := messaging.BatchArchivedEvent{
		BatchID:     batchID,
		ProductName: productName,
		ArchivedAt:  archivedAt,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchArchived, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batchID).Msg("failed to publish batch archived event")
	}
}

// PublishBatchReactivated publishes a batch reactivated event
func (p *StockEventPublisher) PublishBatchReactivated(ctx context.Context, batch *repository.ProductBatch) {
	if p == nil {
		return
	}

	data := messaging.BatchReactivatedEvent{
		BatchID:     batch.ID,
		ProductName: batch.ProductName,
		NewQuantity: batch.Quantity,
		NewExpiry:   batch.ExpiryDate,
	}

	if err := p.publisher.Publish(ctx, messaging.EventBatchReactivated, data); err != nil {
		p.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to publish batch reactivated event")
	}
}

// PublishNotificationCreated publishes a notification created event
func (p *StockEventPublisher) PublishNotificationCreated(ctx context.Context, n *repository.Notification) {
	if p == nil {
		return
	}

	data := messaging.NotificationCreatedEvent{
		NotificationID: n.ID,
		NotifType:      n.NotifType,
		BatchID:        n.BatchID,
		Message:        n.Message,
	}

	if err := p.publisher.Publish(ctx, messaging.EventNotificationCreated, data); err != nil {
		p.logger.Error().Err(err).Str("notification_id", n.ID).Msg("failed to publish notification created event")
	}
}

// PublishDistributionCreated publishes a distribution created event
func (p *StockEventPublisher) PublishDistributionCreated(ctx context.Context, record *repository.DistributionRecord) {
	if p == nil {
		return
	}

	data := messaging.DistributionCreatedEvent{
		DistributionID: record.ID,
		BatchID:        record.BatchID,
		ProductName:    record.ProductName,
		Quantity:       record.Quantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDistributionCreated, data); err != nil {
		p.logger.Error().Err(err).Str("distribution_id", record.ID).Msg("failed to publish distribution created event")
	}
}

// PublishDistributionAmended publishes a distribution amended event
func (p *StockEventPublisher) PublishDistributionAmended(ctx context.Context, record *repository.DistributionRecord, oldQuantity int) {
	if p == nil {
		return
	}

	data := messaging.DistributionAmendedEvent{
		DistributionID: record.ID,
		BatchID:        record.BatchID,
		OldQuantity:    oldQuantity,
		NewQuantity:    record.Quantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDistributionAmended, data); err != nil {
		p.logger.Error().Err(err).Str("distribution_id", record.ID).Msg("failed to publish distribution amended event")
	}
}

// PublishDistributionRetired publishes a distribution retired event
func (p *StockEventPublisher) PublishDistributionRetired(ctx context.Context, record *repository.DistributionRecord) {
	if p == nil {
		return
	}

	data := messaging.DistributionRetiredEvent{
		DistributionID: record.ID,
		BatchID:        record.BatchID,
		Quantity:       record.Quantity,
	}

	if err := p.publisher.Publish(ctx, messaging.EventDistributionRetired, data); err != nil {
		p.logger.Error().Err(err).Str("distribution_id", record.ID).Msg("failed to publish distribution retired event")
	}
}
