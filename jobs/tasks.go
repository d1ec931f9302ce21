package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/kirana-erp/kirana-erp/internal/billing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillCreated is enqueued after a bill transaction commits.
	TaskBillCreated = "notify:bill_created"
	// TaskChequeBounced is enqueued when a deposited cheque bounces.
	TaskChequeBounced = "notify:cheque_bounced"
)

// NewBillCreatedTask constructs an Asynq task for a committed bill.
func NewBillCreatedTask(evt billing.BillCreatedEvent) (*asynq.Task, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillCreated, body, asynq.Queue(QueueDefault)), nil
}

// NewChequeBouncedTask constructs an Asynq task for a bounced cheque.
func NewChequeBouncedTask(evt billing.ChequeBouncedEvent) (*asynq.Task, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskChequeBounced, body, asynq.Queue(QueueDefault)), nil
}

// Enqueuer submits billing events to the queue. It is the billing module's
// EventPublisher; enqueue failures surface as errors and the caller decides
// whether they matter (the billing service only logs them).
type Enqueuer struct {
	client *asynq.Client
}

// NewEnqueuer constructs an Asynq backed event publisher.
func NewEnqueuer(redisOpts asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(redisOpts)}
}

// PublishBillCreated enqueues a bill-created notification task.
func (e *Enqueuer) PublishBillCreated(ctx context.Context, evt billing.BillCreatedEvent) error {
	task, err := NewBillCreatedTask(evt)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

// PublishChequeBounced enqueues a cheque-bounced notification task.
func (e *Enqueuer) PublishChequeBounced(ctx context.Context, evt billing.ChequeBouncedEvent) error {
	task, err := NewChequeBouncedTask(evt)
	if err != nil {
		return err
	}
	_, err = e.client.EnqueueContext(ctx, task)
	return err
}

// Close releases client resources.
func (e *Enqueuer) Close() error {
	return e.client.Close()
}

var _ billing.EventPublisher = (*Enqueuer)(nil)
