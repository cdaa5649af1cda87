package receipt

import (
	"fmt"
	"strings"

	"github.com/noah-isme/backend-pos/internal/invoice"
)

const width = 40

// Subject returns the email subject for an invoice.
func Subject(inv invoice.Invoice) string {
	return fmt.Sprintf("Receipt %s", inv.Number)
}

// Render formats the invoice as a fixed-width plain-text receipt with amounts
// shown to scale decimal places.
func Render(inv invoice.Invoice, s int32) string {
	var b strings.Builder
	rule := strings.Repeat("-", width)
	fmt.Fprintf(&b, "Invoice %s\n", inv.Number)
	fmt.Fprintf(&b, "Date    %s\n", inv.CreatedAt.Format("2006-01-02 15:04"))
	if inv.Customer != nil {
		fmt.Fprintf(&b, "Customer %s\n", inv.Customer.Name)
		if inv.Customer.TaxID != "" {
			fmt.Fprintf(&b, "Tax ID  %s\n", inv.Customer.TaxID)
		}
	}
	b.WriteString(rule + "\n")
	for _, it := range inv.Items {
		name := it.Name()
		if name == "" {
			name = it.ID
		}
		fmt.Fprintf(&b, "%s\n", name)
		line(&b, fmt.Sprintf("  %d x %s", it.Quantity, it.Price.StringFixed(s)), it.AmountAfterItemDiscount.StringFixed(s))
		if it.ItemDiscountAmount.IsPositive() {
			line(&b, "  discount", "-"+it.ItemDiscountAmount.StringFixed(s))
		}
	}
	b.WriteString(rule + "\n")
	line(&b, "Subtotal", inv.Subtotal.StringFixed(s))
	if inv.ItemDiscountTotal.IsPositive() {
		line(&b, "Item discounts", "-"+inv.ItemDiscountTotal.StringFixed(s))
	}
	if inv.InvoiceDiscount.IsPositive() {
		line(&b, "Invoice discount", "-"+inv.InvoiceDiscount.StringFixed(s))
	}
	line(&b, "Tax", inv.TaxTotal.StringFixed(s))
	line(&b, "Total "+inv.Currency, inv.Total.StringFixed(s))
	line(&b, "Paid ("+inv.PaymentMethod+")", inv.AmountTendered.StringFixed(s))
	if inv.ChangeDue.IsPositive() {
		line(&b, "Change", inv.ChangeDue.StringFixed(s))
	}
	if inv.BalanceDue.IsPositive() {
		line(&b, "Balance due", inv.BalanceDue.StringFixed(s))
	}
	if inv.Notes != "" {
		b.WriteString(rule + "\n")
		b.WriteString(inv.Notes + "\n")
	}
	return b.String()
}

func line(b *strings.Builder, label, amount string) {
	pad := width - len(label) - len(amount)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(label)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(amount)
	b.WriteString("\n")
}
