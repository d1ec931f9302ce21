package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/kirana-erp/kirana-erp/internal/billing"
	"github.com/kirana-erp/kirana-erp/internal/reporting"
)

// Notifier delivers customer-facing messages. The production implementation
// talks to an external messaging gateway; LogNotifier is the default.
type Notifier interface {
	BillCreated(ctx context.Context, evt billing.BillCreatedEvent) error
	ChequeBounced(ctx context.Context, evt billing.ChequeBouncedEvent) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	Logger *slog.Logger
}

// BillCreated logs the bill receipt notification.
func (n *LogNotifier) BillCreated(ctx context.Context, evt billing.BillCreatedEvent) error {
	n.Logger.Info("notify bill created",
		slog.String("bill_number", evt.BillNumber),
		slog.Float64("total", evt.TotalAmount),
		slog.String("status", string(evt.PaymentStatus)))
	return nil
}

// ChequeBounced logs the bounce alert.
func (n *LogNotifier) ChequeBounced(ctx context.Context, evt billing.ChequeBouncedEvent) error {
	n.Logger.Warn("notify cheque bounced",
		slog.String("bill_number", evt.BillNumber),
		slog.Float64("amount", evt.Amount))
	return nil
}

// Processor handles notification tasks. Every billing event also bumps the
// reporting cache so dashboards pick up the new numbers.
type Processor struct {
	notifier Notifier
	cache    *reporting.Cache
	logger   *slog.Logger
}

// NewProcessor constructs a task processor.
func NewProcessor(notifier Notifier, cache *reporting.Cache, logger *slog.Logger) *Processor {
	if notifier == nil {
		notifier = &LogNotifier{Logger: logger}
	}
	return &Processor{notifier: notifier, cache: cache, logger: logger}
}

// HandleBillCreated processes TaskBillCreated tasks.
func (p *Processor) HandleBillCreated(ctx context.Context, t *asynq.Task) error {
	var evt billing.BillCreatedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	if err := p.cache.Bump(ctx); err != nil {
		p.logger.Warn("bump reporting cache", slog.Any("error", err))
	}
	return p.notifier.BillCreated(ctx, evt)
}

// HandleChequeBounced processes TaskChequeBounced tasks.
func (p *Processor) HandleChequeBounced(ctx context.Context, t *asynq.Task) error {
	var evt billing.ChequeBouncedEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return asynq.SkipRetry
	}
	if err := p.cache.Bump(ctx); err != nil {
		p.logger.Warn("bump reporting cache", slog.Any("error", err))
	}
	return p.notifier.ChequeBounced(ctx, evt)
}
