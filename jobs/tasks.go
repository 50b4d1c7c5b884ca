package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/medstock/medstock/internal/orders"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueOrders carries order workflow events.
	QueueOrders = "orders"
	// TaskOrderStatusChanged records a completed order transition in the audit log.
	TaskOrderStatusChanged = "orders:status_changed"
	// TaskIdempotencyCleanup purges expired idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// OrderStatusChangedPayload describes one completed transition.
type OrderStatusChangedPayload struct {
	OrderID uuid.UUID     `json:"order_id"`
	ActorID uuid.UUID     `json:"actor_id"`
	From    orders.Status `json:"from"`
	To      orders.Status `json:"to"`
	Path    orders.Path   `json:"path"`
	At      time.Time     `json:"at"`
}

// NewOrderStatusChangedTask constructs an Asynq task for change.
func NewOrderStatusChangedTask(change orders.StatusChange) (*asynq.Task, error) {
	if change.OrderID == uuid.Nil {
		return nil, fmt.Errorf("status changed task: order id required")
	}
	data, err := json.Marshal(OrderStatusChangedPayload{
		OrderID: change.OrderID,
		ActorID: change.ActorID,
		From:    change.From,
		To:      change.To,
		Path:    change.Path,
		At:      change.At,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatusChanged, data), nil
}

// IdempotencyCleanupPayload configures the retention window.
type IdempotencyCleanupPayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(retention time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(IdempotencyCleanupPayload{RetentionHours: int(retention / time.Hour)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
