package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/invoice"
	"github.com/noah-isme/backend-pos/internal/obs"
)

// InvoiceReader loads invoices by id.
type InvoiceReader interface {
	Get(ctx context.Context, id string) (invoice.Invoice, error)
}

// Worker processes receipt:deliver tasks.
type Worker struct {
	Invoices InvoiceReader
	Email    common.EmailSender
	Webhook  *Webhook
	Scale    int32
	Logger   zerolog.Logger
}

// Register mounts the worker on an asynq mux.
func (w *Worker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskDeliver, w.ProcessTask)
}

// ProcessTask renders the receipt and sends it to the customer email and the
// webhook when configured. Unknown invoices are not retried.
func (w *Worker) ProcessTask(ctx context.Context, task *asynq.Task) error {
	if w == nil || w.Invoices == nil {
		return errors.New("receipt worker not configured")
	}
	var p Payload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		w.record("invalid")
		return fmt.Errorf("decode receipt payload: %v: %w", err, asynq.SkipRetry)
	}
	inv, err := w.Invoices.Get(ctx, p.InvoiceID)
	if err != nil {
		if errors.Is(err, invoice.ErrNotFound) {
			w.record("missing")
			return fmt.Errorf("invoice %s: %v: %w", p.InvoiceID, err, asynq.SkipRetry)
		}
		w.record("error")
		return err
	}
	text := Render(inv, w.Scale)
	log := w.Logger.With().Str("invoice_id", inv.ID).Str("invoice_number", inv.Number).Logger()

	delivered := false
	if inv.Customer != nil && inv.Customer.Email != "" && w.Email != nil {
		if err := w.Email.Send(ctx, inv.Customer.Email, Subject(inv), text); err != nil {
			w.record("error")
			return fmt.Errorf("send receipt email: %w", err)
		}
		delivered = true
	}
	if w.Webhook != nil && w.Webhook.URL != "" {
		if err := w.Webhook.Post(ctx, inv, text); err != nil {
			w.record("error")
			return err
		}
		delivered = true
	}
	if !delivered {
		log.Info().Msg("receipt has no recipient")
		w.record("skipped")
		return nil
	}
	log.Info().Msg("receipt delivered")
	w.record("delivered")
	return nil
}

func (w *Worker) record(result string) {
	if obs.ReceiptDeliveriesTotal != nil {
		obs.ReceiptDeliveriesTotal.WithLabelValues(result).Inc()
	}
}
