package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Stock ledger events
	EventStockDeducted = "stock.deducted"
	EventStockRestored = "stock.restored"

	// Batch lifecycle events
	EventBatchArchived    = "stock.batch.archived"
	EventBatchReactivated = "stock.batch.reactivated"

	// Notification events
	EventNotificationCreated = "stock.notification.created"

	// Distribution events
	EventDistributionCreated = "stock.distribution.created"
	EventDistributionAmended = "stock.distribution.amended"
	EventDistributionRetired = "stock.distribution.retired"
)

// Exchange names
const (
	ExchangeStockEvents = "stock.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Stock ledger events

// StockDeductedEvent is published after a FIFO deduction commits
type StockDeductedEvent struct {
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
	FirstBatchID   string `json:"first_batch_id"`
	BatchesTouched int    `json:"batches_touched"`
}

// StockRestoredEvent is published after a stock restoration commits
type StockRestoredEvent struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
}

// Batch lifecycle events

// BatchArchivedEvent is published when a batch is archived
type BatchArchivedEvent struct {
	BatchID     string    `json:"batch_id"`
	ProductName string    `json:"product_name"`
	ArchivedAt  time.Time `json:"archived_at"`
}

// BatchReactivatedEvent is published when an archived batch is reactivated
type BatchReactivatedEvent struct {
	BatchID     string    `json:"batch_id"`
	ProductName string    `json:"product_name"`
	NewQuantity int       `json:"new_quantity"`
	NewExpiry   time.Time `json:"new_expiry"`
}

// NotificationCreatedEvent is published when an advisory notification row is written
type NotificationCreatedEvent struct {
	NotificationID string `json:"notification_id"`
	NotifType      string `json:"notif_type"`
	BatchID        string `json:"batch_id"`
	Message        string `json:"message"`
}

// Distribution events

// DistributionCreatedEvent is published when a distribution record is fulfilled
type DistributionCreatedEvent struct {
	DistributionID string `json:"distribution_id"`
	BatchID        string `json:"batch_id"`
	ProductName    string `json:"product_name"`
	Quantity       int    `json:"quantity"`
}

// DistributionAmendedEvent is published when a distribution's quantity changes
type DistributionAmendedEvent struct {
	DistributionID string `json:"distribution_id"`
	BatchID        string `json:"batch_id"`
	OldQuantity    int    `json:"old_quantity"`
	NewQuantity    int    `json:"new_quantity"`
}

// DistributionRetiredEvent is published when a distribution record is retired
type DistributionRetiredEvent struct {
	DistributionID string `json:"distribution_id"`
	BatchID        string `json:"batch_id"`
	Quantity       int    `json:"quantity"`
}
