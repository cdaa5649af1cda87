// Package receipt renders sale receipts and delivers them from a background
// worker. Sales enqueue a receipt:deliver task when sale.completed is emitted.
package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/events"
)

// TaskDeliver is the asynq task type for receipt delivery.
const TaskDeliver = "receipt:deliver"

// Payload is the body of a receipt:deliver task.
type Payload struct {
	InvoiceID string `json:"invoiceId"`
	EventID   string `json:"eventId,omitempty"`
}

// NewDeliverTask builds the task for an invoice. The task id is derived from
// the invoice so a sale is never queued twice.
func NewDeliverTask(p Payload, queue string) (*asynq.Task, error) {
	if strings.TrimSpace(p.InvoiceID) == "" {
		return nil, errors.New("receipt: invoice id required")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{
		asynq.TaskID("receipt:" + p.InvoiceID),
		asynq.MaxRetry(5),
		asynq.Timeout(30 * time.Second),
	}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}
	return asynq.NewTask(TaskDeliver, data, opts...), nil
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer turns sale.completed events into receipt tasks.
type Enqueuer struct {
	Client TaskEnqueuer
	Queue  string
}

// Notify implements events.Notifier.
func (e Enqueuer) Notify(ctx context.Context, event dbgen.DomainEvent) error {
	if e.Client == nil || event.Topic != events.TopicSaleCompleted {
		return nil
	}
	var body struct {
		InvoiceID string `json:"invoiceId"`
	}
	if err := json.Unmarshal(event.Payload, &body); err != nil {
		return fmt.Errorf("receipt: decode event: %w", err)
	}
	invoiceID := body.InvoiceID
	if invoiceID == "" {
		invoiceID = event.AggregateID
	}
	task, err := NewDeliverTask(Payload{InvoiceID: invoiceID, EventID: event.ID}, e.Queue)
	if err != nil {
		return err
	}
	if _, err := e.Client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("receipt: enqueue: %w", err)
	}
	return nil
}
