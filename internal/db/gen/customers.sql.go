package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const customerColumns = `id::text, name, email, phone, tax_id, balance::text, total_spent::text, created_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c              Customer
		balance, spent string
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.TaxID, &balance, &spent, &c.CreatedAt); err != nil {
		return Customer{}, err
	}
	var err error
	if c.Balance, err = parseDecimal("balance", balance); err != nil {
		return Customer{}, err
	}
	if c.TotalSpent, err = parseDecimal("total_spent", spent); err != nil {
		return Customer{}, err
	}
	return c, nil
}

const getCustomer = `-- name: GetCustomer :one
SELECT ` + customerColumns + `
FROM customers
WHERE id = $1::uuid`

func (q *Queries) GetCustomer(ctx context.Context, id string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, id))
}

const listCustomers = `-- name: ListCustomers :many
SELECT ` + customerColumns + `
FROM customers
WHERE $1::text = '' OR lower(name) LIKE '%' || lower($1::text) || '%' OR phone LIKE '%' || $1::text || '%'
ORDER BY name
LIMIT $2 OFFSET $3`

type ListCustomersParams struct {
	Search string
	Limit  int32
	Offset int32
}

func (q *Queries) ListCustomers(ctx context.Context, arg ListCustomersParams) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const createCustomer = `-- name: CreateCustomer :one
INSERT INTO customers (name, email, phone, tax_id)
VALUES ($1, $2, $3, $4)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	Name  string
	Email string
	Phone string
	TaxID string
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, createCustomer, arg.Name, arg.Email, arg.Phone, arg.TaxID))
}

const addCustomerSpend = `-- name: AddCustomerSpend :execrows
UPDATE customers
SET total_spent = total_spent + $2::numeric
WHERE id = $1::uuid`

func (q *Queries) AddCustomerSpend(ctx context.Context, id, amount string) (int64, error) {
	tag, err := q.db.Exec(ctx, addCustomerSpend, id, amount)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
