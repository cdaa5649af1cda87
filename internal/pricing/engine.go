package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ItemTotals is a line item enriched with its computed amounts.
type ItemTotals struct {
	LineItem
	BaseAmount              decimal.Decimal `json:"baseAmount"`
	ItemDiscountAmount      decimal.Decimal `json:"itemDiscountAmount"`
	AmountAfterItemDiscount decimal.Decimal `json:"amountAfterItemDiscount"`
	// TaxAmount is the item's tax before the invoice discount is spread. Display only.
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

// Breakdown aggregates computed cart totals.
type Breakdown struct {
	Items                     []ItemTotals    `json:"itemsWithTotals"`
	Subtotal                  decimal.Decimal `json:"subtotal"`
	ItemDiscountTotal         decimal.Decimal `json:"itemDiscountTotal"`
	SubtotalAfterItemDiscount decimal.Decimal `json:"subtotalAfterItemDiscount"`
	InvoiceDiscountAmount     decimal.Decimal `json:"invoiceDiscountAmount"`
	AmountAfterDiscount       decimal.Decimal `json:"amountAfterDiscount"`
	TaxTotal                  decimal.Decimal `json:"taxTotal"`
	Total                     decimal.Decimal `json:"total"`
}

// DiscountTotal returns the combined item and invoice discount.
func (b Breakdown) DiscountTotal() decimal.Decimal {
	return b.ItemDiscountTotal.Add(b.InvoiceDiscountAmount)
}

// Compute derives the totals breakdown for the cart. It has no side effects and
// never fails: oversized discounts yield negative amounts rather than errors.
func Compute(c Cart) Breakdown {
	items := make([]ItemTotals, 0, len(c.Items))
	subtotal := decimal.Zero
	afterItemDiscount := decimal.Zero
	itemDiscountTotal := decimal.Zero

	for _, it := range c.Items {
		base := it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
		discount := discountAmount(base, it.ItemDiscount, it.ItemDiscountType)
		net := base.Sub(discount)
		tax := net.Mul(it.TaxRate).Div(hundred)

		items = append(items, ItemTotals{
			LineItem:                it.clone(),
			BaseAmount:              base,
			ItemDiscountAmount:      discount,
			AmountAfterItemDiscount: net,
			TaxAmount:               tax,
			Total:                   net.Add(tax),
		})
		subtotal = subtotal.Add(base)
		afterItemDiscount = afterItemDiscount.Add(net)
		itemDiscountTotal = itemDiscountTotal.Add(discount)
	}

	invoiceDiscount := discountAmount(afterItemDiscount, c.InvoiceDiscount, c.InvoiceDiscountType)
	afterDiscount := afterItemDiscount.Sub(invoiceDiscount)
	taxTotal := redistributedTax(items, afterItemDiscount, afterDiscount)

	return Breakdown{
		Items:                     items,
		Subtotal:                  subtotal,
		ItemDiscountTotal:         itemDiscountTotal,
		SubtotalAfterItemDiscount: afterItemDiscount,
		InvoiceDiscountAmount:     invoiceDiscount,
		AmountAfterDiscount:       afterDiscount,
		TaxTotal:                  taxTotal,
		Total:                     afterDiscount.Add(taxTotal),
	}
}

// discountAmount resolves a discount against base. Only positive magnitudes apply
// and nothing is clamped to the base.
func discountAmount(base, amount decimal.Decimal, kind DiscountType) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	if kind.Normalize() == DiscountPercentage {
		return base.Mul(amount).Div(hundred)
	}
	return amount
}

// redistributedTax spreads the post-discount amount over items in proportion to
// their share of the post-item-discount subtotal, then taxes each share at the
// item's own rate.
func redistributedTax(items []ItemTotals, afterItemDiscount, afterDiscount decimal.Decimal) decimal.Decimal {
	if !afterItemDiscount.IsPositive() {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, it := range items {
		// multiply before dividing so exact shares stay exact
		share := afterDiscount.Mul(it.AmountAfterItemDiscount).Div(afterItemDiscount)
		total = total.Add(share.Mul(it.TaxRate).Div(hundred))
	}
	return total
}

// Round returns a copy of the breakdown rounded to places. Component amounts
// are rounded and the derived amounts are rebuilt from them, so every
// difference and sum in the rounded breakdown still holds.
func (b Breakdown) Round(places int32) Breakdown {
	out := Breakdown{
		Items:                 make([]ItemTotals, len(b.Items)),
		Subtotal:              b.Subtotal.Round(places),
		ItemDiscountTotal:     b.ItemDiscountTotal.Round(places),
		InvoiceDiscountAmount: b.InvoiceDiscountAmount.Round(places),
		TaxTotal:              b.TaxTotal.Round(places),
	}
	out.SubtotalAfterItemDiscount = out.Subtotal.Sub(out.ItemDiscountTotal)
	out.AmountAfterDiscount = out.SubtotalAfterItemDiscount.Sub(out.InvoiceDiscountAmount)
	out.Total = out.AmountAfterDiscount.Add(out.TaxTotal)
	for i, it := range b.Items {
		it.BaseAmount = it.BaseAmount.Round(places)
		it.ItemDiscountAmount = it.ItemDiscountAmount.Round(places)
		it.AmountAfterItemDiscount = it.BaseAmount.Sub(it.ItemDiscountAmount)
		it.TaxAmount = it.TaxAmount.Round(places)
		it.Total = it.AmountAfterItemDiscount.Add(it.TaxAmount)
		out.Items[i] = it
	}
	return out
}
