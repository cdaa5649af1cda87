package checkout

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/invoice"
)

// Settlement is the payment outcome of a sale.
type Settlement struct {
	Status         string          `json:"status"`
	AmountTendered decimal.Decimal `json:"amountTendered"`
	BalanceDue     decimal.Decimal `json:"balanceDue"`
	ChangeDue      decimal.Decimal `json:"changeDue"`
}

// Settle compares the tendered amount against the invoice total. Both are
// rounded to scale first so the persisted amounts add up exactly.
func Settle(total, tendered decimal.Decimal, scale int32) Settlement {
	total = total.Round(scale)
	tendered = tendered.Round(scale)
	if tendered.GreaterThanOrEqual(total) {
		return Settlement{
			Status:         invoice.StatusPaid,
			AmountTendered: tendered,
			BalanceDue:     decimal.Zero,
			ChangeDue:      tendered.Sub(total),
		}
	}
	return Settlement{
		Status:         invoice.StatusPartial,
		AmountTendered: tendered,
		BalanceDue:     total.Sub(tendered),
		ChangeDue:      decimal.Zero,
	}
}

// Collected is the amount kept in the drawer for the sale.
func (s Settlement) Collected() decimal.Decimal {
	return s.AmountTendered.Sub(s.ChangeDue)
}
