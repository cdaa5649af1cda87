package dbgen

import (
	"time"

	"github.com/shopspring/decimal"
)

type CatalogItem struct {
	ID              string
	Name            string
	SKU             string
	Price           decimal.Decimal
	TaxRate         decimal.Decimal
	DurationMinutes *int32
	Description     string
	ItemType        string
	Category        string
	Active          bool
}

type Customer struct {
	ID         string
	Name       string
	Email      string
	Phone      string
	TaxID      string
	Balance    decimal.Decimal
	TotalSpent decimal.Decimal
	CreatedAt  time.Time
}

type CashSession struct {
	ID           string
	OperatorID   string
	Status       string
	OpeningCash  decimal.Decimal
	ClosingCash  *decimal.Decimal
	ExpectedCash *decimal.Decimal
	Variance     *decimal.Decimal
	TotalSales   decimal.Decimal
	InvoiceCount int32
	OpenedAt     time.Time
	ClosedAt     *time.Time
}

type Invoice struct {
	ID                string
	Number            string
	CartID            string
	OperatorID        string
	SessionID         *string
	CustomerID        *string
	Customer          []byte
	Status            string
	PaymentMethod     string
	Currency          string
	Subtotal          decimal.Decimal
	ItemDiscountTotal decimal.Decimal
	InvoiceDiscount   decimal.Decimal
	TaxTotal          decimal.Decimal
	Total             decimal.Decimal
	AmountTendered    decimal.Decimal
	BalanceDue        decimal.Decimal
	ChangeDue         decimal.Decimal
	Notes             string
	Items             []byte
	CreatedAt         time.Time
}

type DomainEvent struct {
	ID          string
	Topic       string
	AggregateID string
	Payload     []byte
	OccurredAt  time.Time
}

type SalesDailyRow struct {
	Day           time.Time
	InvoiceCount  int64
	Revenue       decimal.Decimal
	TaxTotal      decimal.Decimal
	DiscountTotal decimal.Decimal
	BalanceDue    decimal.Decimal
}
