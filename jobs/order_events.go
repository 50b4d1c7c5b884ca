package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/medstock/medstock/internal/jobs"
	"github.com/medstock/medstock/internal/shared"
)

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// OrderEventsJob writes order transitions into the audit log.
type OrderEventsJob struct {
	Audit   AuditRecorder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewOrderEventsJob initialises the status change handler.
func NewOrderEventsJob(audit AuditRecorder, logger *slog.Logger, metrics *jobmetrics.Metrics) *OrderEventsJob {
	return &OrderEventsJob{Audit: audit, Logger: logger, Metrics: metrics}
}

// Handle processes TaskOrderStatusChanged tasks.
func (j *OrderEventsJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Audit == nil {
		return errors.New("order events: handler not configured")
	}
	var payload OrderStatusChangedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("order events: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskOrderStatusChanged)
	defer func() {
		err = tracker.End(err)
	}()

	entry := shared.AuditLog{
		ActorID:  payload.ActorID,
		Action:   "order.status_changed",
		Entity:   "order_request",
		EntityID: payload.OrderID.String(),
		Meta: map[string]any{
			"from": string(payload.From),
			"to":   string(payload.To),
			"path": string(payload.Path),
		},
		At: payload.At,
	}
	if err := j.Audit.Record(ctx, entry); err != nil {
		j.logger().Error("record order audit", slog.String("order_id", entry.EntityID), slog.Any("error", err))
		return err
	}
	j.logger().Info("order status audited",
		slog.String("order_id", entry.EntityID),
		slog.String("from", string(payload.From)),
		slog.String("to", string(payload.To)),
		slog.String("path", string(payload.Path)),
	)
	return nil
}

func (j *OrderEventsJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
