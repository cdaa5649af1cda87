package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/invoice"
	"github.com/noah-isme/backend-pos/internal/session"
)

// TxBeginner starts database transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// PGStore writes the invoice, books the sale on the cash session and updates
// the customer's spend in a single transaction.
type PGStore struct {
	DB TxBeginner
}

// CreateSale implements Store.
func (p PGStore) CreateSale(ctx context.Context, sale Sale) (invoice.Invoice, error) {
	if p.DB == nil {
		return invoice.Invoice{}, errors.New("checkout store not configured")
	}
	tx, err := p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return invoice.Invoice{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	q := dbgen.New(tx)

	sessionID, err := session.ForSale(ctx, q, sale.SessionID, sale.OperatorID)
	if err != nil {
		return invoice.Invoice{}, err
	}
	seq, err := q.NextInvoiceSequence(ctx)
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("next invoice number: %w", err)
	}
	items, err := json.Marshal(sale.Totals.Items)
	if err != nil {
		return invoice.Invoice{}, err
	}
	var (
		customerID   *string
		customerJSON []byte
	)
	if sale.Customer != nil {
		id := sale.Customer.ID
		customerID = &id
		if customerJSON, err = json.Marshal(sale.Customer); err != nil {
			return invoice.Invoice{}, err
		}
	}
	t := sale.Totals
	row, err := q.CreateInvoice(ctx, dbgen.CreateInvoiceParams{
		Number:            invoice.Number(sale.At, seq),
		CartID:            sale.CartID,
		OperatorID:        sale.OperatorID,
		SessionID:         sessionID,
		CustomerID:        customerID,
		Customer:          customerJSON,
		Status:            sale.Settlement.Status,
		PaymentMethod:     sale.PaymentMethod,
		Currency:          sale.Currency,
		Subtotal:          t.Subtotal.String(),
		ItemDiscountTotal: t.ItemDiscountTotal.String(),
		InvoiceDiscount:   t.InvoiceDiscountAmount.String(),
		TaxTotal:          t.TaxTotal.String(),
		Total:             t.Total.String(),
		AmountTendered:    sale.Settlement.AmountTendered.String(),
		BalanceDue:        sale.Settlement.BalanceDue.String(),
		ChangeDue:         sale.Settlement.ChangeDue.String(),
		Notes:             sale.Notes,
		Items:             items,
	})
	if err != nil {
		return invoice.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}
	if sessionID != nil {
		if _, err := session.RecordSale(ctx, q, *sessionID, sale.Settlement.Collected()); err != nil {
			return invoice.Invoice{}, err
		}
	}
	if customerID != nil {
		if _, err := q.AddCustomerSpend(ctx, *customerID, t.Total.String()); err != nil {
			return invoice.Invoice{}, fmt.Errorf("update customer spend: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return invoice.Invoice{}, err
	}
	return invoice.FromRow(row)
}
