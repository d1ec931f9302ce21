package billing

import (
	"context"
	"time"
)

// BillCreatedEvent is published after a bill transaction commits.
type BillCreatedEvent struct {
	BillID          int64         `json:"bill_id"`
	BillNumber      string        `json:"bill_number"`
	BusinessOwnerID int64         `json:"business_owner_id"`
	CustomerID      int64         `json:"customer_id,omitempty"`
	TotalAmount     float64       `json:"total_amount"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	CreatedAt       time.Time     `json:"created_at"`
}

// ChequeBouncedEvent is published when a deposited cheque bounces and the
// bill becomes an outstanding receivable.
type ChequeBouncedEvent struct {
	BillID          int64     `json:"bill_id"`
	BillNumber      string    `json:"bill_number"`
	BusinessOwnerID int64     `json:"business_owner_id"`
	CustomerID      int64     `json:"customer_id,omitempty"`
	Amount          float64   `json:"amount"`
	BouncedAt       time.Time `json:"bounced_at"`
}

// EventPublisher delivers domain events to the notification collaborator.
// Delivery is best effort: publish failures are logged by the service and
// never affect the transaction outcome.
type EventPublisher interface {
	PublishBillCreated(ctx context.Context, evt BillCreatedEvent) error
	PublishChequeBounced(ctx context.Context, evt ChequeBouncedEvent) error
}
