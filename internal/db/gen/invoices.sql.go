package dbgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const invoiceColumns = `id::text, number, cart_id, operator_id, session_id::text, customer_id::text, customer, status,
    payment_method, currency, subtotal::text, item_discount_total::text, invoice_discount::text, tax_total::text,
    total::text, amount_tendered::text, balance_due::text, change_due::text, notes, items, created_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv     Invoice
		amounts [8]string
	)
	if err := row.Scan(
		&inv.ID, &inv.Number, &inv.CartID, &inv.OperatorID, &inv.SessionID, &inv.CustomerID, &inv.Customer, &inv.Status,
		&inv.PaymentMethod, &inv.Currency, &amounts[0], &amounts[1], &amounts[2], &amounts[3],
		&amounts[4], &amounts[5], &amounts[6], &amounts[7], &inv.Notes, &inv.Items, &inv.CreatedAt,
	); err != nil {
		return Invoice{}, err
	}
	columns := [8]string{"subtotal", "item_discount_total", "invoice_discount", "tax_total", "total", "amount_tendered", "balance_due", "change_due"}
	targets := [8]*decimal.Decimal{
		&inv.Subtotal, &inv.ItemDiscountTotal, &inv.InvoiceDiscount, &inv.TaxTotal,
		&inv.Total, &inv.AmountTendered, &inv.BalanceDue, &inv.ChangeDue,
	}
	for i, dst := range targets {
		d, err := parseDecimal(columns[i], amounts[i])
		if err != nil {
			return Invoice{}, err
		}
		*dst = d
	}
	return inv, nil
}

const nextInvoiceSequence = `-- name: NextInvoiceSequence :one
SELECT nextval('invoice_number_seq')`

func (q *Queries) NextInvoiceSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := q.db.QueryRow(ctx, nextInvoiceSequence).Scan(&seq)
	return seq, err
}

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (
    number, cart_id, operator_id, session_id, customer_id, customer, status, payment_method, currency,
    subtotal, item_discount_total, invoice_discount, tax_total, total, amount_tendered, balance_due, change_due,
    notes, items
) VALUES (
    $1, $2, $3, $4::uuid, $5::uuid, $6, $7, $8, $9,
    $10::numeric, $11::numeric, $12::numeric, $13::numeric, $14::numeric, $15::numeric, $16::numeric, $17::numeric,
    $18, $19
)
RETURNING ` + invoiceColumns

type CreateInvoiceParams struct {
	Number            string
	CartID            string
	OperatorID        string
	SessionID         *string
	CustomerID        *string
	Customer          []byte
	Status            string
	PaymentMethod     string
	Currency          string
	Subtotal          string
	ItemDiscountTotal string
	InvoiceDiscount   string
	TaxTotal          string
	Total             string
	AmountTendered    string
	BalanceDue        string
	ChangeDue         string
	Notes             string
	Items             []byte
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, createInvoice,
		arg.Number, arg.CartID, arg.OperatorID, arg.SessionID, arg.CustomerID, arg.Customer, arg.Status,
		arg.PaymentMethod, arg.Currency, arg.Subtotal, arg.ItemDiscountTotal, arg.InvoiceDiscount, arg.TaxTotal,
		arg.Total, arg.AmountTendered, arg.BalanceDue, arg.ChangeDue, arg.Notes, arg.Items,
	))
}

const getInvoice = `-- name: GetInvoice :one
SELECT ` + invoiceColumns + `
FROM invoices
WHERE id = $1::uuid`

func (q *Queries) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	return scanInvoice(q.db.QueryRow(ctx, getInvoice, id))
}

const listInvoices = `-- name: ListInvoices :many
SELECT ` + invoiceColumns + `
FROM invoices
WHERE ($1::uuid IS NULL OR session_id = $1::uuid)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListInvoicesParams struct {
	SessionID *string
	Limit     int32
	Offset    int32
}

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.Query(ctx, listInvoices, arg.SessionID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

const countInvoices = `-- name: CountInvoices :one
SELECT count(*)
FROM invoices
WHERE ($1::uuid IS NULL OR session_id = $1::uuid)`

func (q *Queries) CountInvoices(ctx context.Context, sessionID *string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countInvoices, sessionID).Scan(&n)
	return n, err
}

const getSalesDailyRange = `-- name: GetSalesDailyRange :many
SELECT date_trunc('day', created_at) AS day,
       count(*) AS invoice_count,
       coalesce(sum(total), 0)::text AS revenue,
       coalesce(sum(tax_total), 0)::text AS tax_total,
       coalesce(sum(item_discount_total + invoice_discount), 0)::text AS discount_total,
       coalesce(sum(balance_due), 0)::text AS balance_due
FROM invoices
WHERE created_at >= $1 AND created_at < $2
GROUP BY 1
ORDER BY 1`

func (q *Queries) GetSalesDailyRange(ctx context.Context, from, to time.Time) ([]SalesDailyRow, error) {
	rows, err := q.db.Query(ctx, getSalesDailyRange, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []SalesDailyRow{}
	for rows.Next() {
		var (
			r                               SalesDailyRow
			revenue, tax, discount, balance string
		)
		if err := rows.Scan(&r.Day, &r.InvoiceCount, &revenue, &tax, &discount, &balance); err != nil {
			return nil, err
		}
		if r.Revenue, err = parseDecimal("revenue", revenue); err != nil {
			return nil, err
		}
		if r.TaxTotal, err = parseDecimal("tax_total", tax); err != nil {
			return nil, err
		}
		if r.DiscountTotal, err = parseDecimal("discount_total", discount); err != nil {
			return nil, err
		}
		if r.BalanceDue, err = parseDecimal("balance_due", balance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
