package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const cashSessionColumns = `id::text, operator_id, status, opening_cash::text, closing_cash::text, expected_cash::text,
    variance::text, total_sales::text, invoice_count, opened_at, closed_at`

func scanCashSession(row pgx.Row) (CashSession, error) {
	var (
		s                          CashSession
		opening, totalSales        string
		closing, expected, variance *string
	)
	if err := row.Scan(&s.ID, &s.OperatorID, &s.Status, &opening, &closing, &expected, &variance, &totalSales, &s.InvoiceCount, &s.OpenedAt, &s.ClosedAt); err != nil {
		return CashSession{}, err
	}
	var err error
	if s.OpeningCash, err = parseDecimal("opening_cash", opening); err != nil {
		return CashSession{}, err
	}
	if s.TotalSales, err = parseDecimal("total_sales", totalSales); err != nil {
		return CashSession{}, err
	}
	if s.ClosingCash, err = parseNullDecimal("closing_cash", closing); err != nil {
		return CashSession{}, err
	}
	if s.ExpectedCash, err = parseNullDecimal("expected_cash", expected); err != nil {
		return CashSession{}, err
	}
	if s.Variance, err = parseNullDecimal("variance", variance); err != nil {
		return CashSession{}, err
	}
	return s, nil
}

const createCashSession = `-- name: CreateCashSession :one
INSERT INTO cash_sessions (operator_id, opening_cash)
VALUES ($1, $2::numeric)
RETURNING ` + cashSessionColumns

func (q *Queries) CreateCashSession(ctx context.Context, operatorID, openingCash string) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, createCashSession, operatorID, openingCash))
}

const getCashSession = `-- name: GetCashSession :one
SELECT ` + cashSessionColumns + `
FROM cash_sessions
WHERE id = $1::uuid`

func (q *Queries) GetCashSession(ctx context.Context, id string) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, getCashSession, id))
}

const getOpenCashSession = `-- name: GetOpenCashSession :one
SELECT ` + cashSessionColumns + `
FROM cash_sessions
WHERE operator_id = $1 AND status = 'open'`

func (q *Queries) GetOpenCashSession(ctx context.Context, operatorID string) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, getOpenCashSession, operatorID))
}

const closeCashSession = `-- name: CloseCashSession :one
UPDATE cash_sessions
SET status = 'closed',
    closing_cash = $2::numeric,
    expected_cash = opening_cash + total_sales,
    variance = $2::numeric - (opening_cash + total_sales),
    closed_at = now()
WHERE id = $1::uuid AND status = 'open'
RETURNING ` + cashSessionColumns

func (q *Queries) CloseCashSession(ctx context.Context, id, closingCash string) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, closeCashSession, id, closingCash))
}

const recordCashSessionSale = `-- name: RecordCashSessionSale :one
UPDATE cash_sessions
SET total_sales = total_sales + $2::numeric,
    invoice_count = invoice_count + 1
WHERE id = $1::uuid AND status = 'open'
RETURNING ` + cashSessionColumns

func (q *Queries) RecordCashSessionSale(ctx context.Context, id, amount string) (CashSession, error) {
	return scanCashSession(q.db.QueryRow(ctx, recordCashSessionSale, id, amount))
}

const listCashSessions = `-- name: ListCashSessions :many
SELECT ` + cashSessionColumns + `
FROM cash_sessions
WHERE $1::text = '' OR operator_id = $1::text
ORDER BY opened_at DESC
LIMIT $2 OFFSET $3`

type ListCashSessionsParams struct {
	OperatorID string
	Limit      int32
	Offset     int32
}

func (q *Queries) ListCashSessions(ctx context.Context, arg ListCashSessionsParams) ([]CashSession, error) {
	rows, err := q.db.Query(ctx, listCashSessions, arg.OperatorID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CashSession{}
	for rows.Next() {
		s, err := scanCashSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
