package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

const (
	StatusPaid    = "paid"
	StatusPartial = "partial"
)

// Invoice is a finalized sale.
type Invoice struct {
	ID                string               `json:"id"`
	Number            string               `json:"number"`
	CartID            string               `json:"cartId"`
	OperatorID        string               `json:"operatorId"`
	SessionID         *string              `json:"sessionId"`
	Customer          *pricing.Customer    `json:"customer"`
	Status            string               `json:"status"`
	PaymentMethod     string               `json:"paymentMethod"`
	Currency          string               `json:"currency"`
	Items             []pricing.ItemTotals `json:"items"`
	Subtotal          decimal.Decimal      `json:"subtotal"`
	ItemDiscountTotal decimal.Decimal      `json:"itemDiscountTotal"`
	InvoiceDiscount   decimal.Decimal      `json:"invoiceDiscount"`
	TaxTotal          decimal.Decimal      `json:"taxTotal"`
	Total             decimal.Decimal      `json:"total"`
	AmountTendered    decimal.Decimal      `json:"amountTendered"`
	BalanceDue        decimal.Decimal      `json:"balanceDue"`
	ChangeDue         decimal.Decimal      `json:"changeDue"`
	Notes             string               `json:"notes,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
}

// FromRow converts the stored row, decoding its JSON columns.
func FromRow(row dbgen.Invoice) (Invoice, error) {
	inv := Invoice{
		ID:                row.ID,
		Number:            row.Number,
		CartID:            row.CartID,
		OperatorID:        row.OperatorID,
		SessionID:         row.SessionID,
		Status:            row.Status,
		PaymentMethod:     row.PaymentMethod,
		Currency:          row.Currency,
		Items:             []pricing.ItemTotals{},
		Subtotal:          row.Subtotal,
		ItemDiscountTotal: row.ItemDiscountTotal,
		InvoiceDiscount:   row.InvoiceDiscount,
		TaxTotal:          row.TaxTotal,
		Total:             row.Total,
		AmountTendered:    row.AmountTendered,
		BalanceDue:        row.BalanceDue,
		ChangeDue:         row.ChangeDue,
		Notes:             row.Notes,
		CreatedAt:         row.CreatedAt,
	}
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &inv.Items); err != nil {
			return Invoice{}, fmt.Errorf("decode invoice items: %w", err)
		}
	}
	if len(row.Customer) > 0 && string(row.Customer) != "null" {
		var c pricing.Customer
		if err := json.Unmarshal(row.Customer, &c); err != nil {
			return Invoice{}, fmt.Errorf("decode invoice customer: %w", err)
		}
		inv.Customer = &c
	}
	return inv, nil
}

// Number formats the human readable invoice number for a sequence value.
func Number(at time.Time, seq int64) string {
	return fmt.Sprintf("INV-%d-%06d", at.Year(), seq)
}
