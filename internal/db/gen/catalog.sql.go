package dbgen

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const catalogItemColumns = `id, name, sku, price::text, tax_rate::text, duration_minutes, description, item_type, category, active`

func scanCatalogItem(row pgx.Row) (CatalogItem, error) {
	var (
		i            CatalogItem
		price, taxes string
	)
	if err := row.Scan(&i.ID, &i.Name, &i.SKU, &price, &taxes, &i.DurationMinutes, &i.Description, &i.ItemType, &i.Category, &i.Active); err != nil {
		return CatalogItem{}, err
	}
	var err error
	if i.Price, err = parseDecimal("price", price); err != nil {
		return CatalogItem{}, err
	}
	if i.TaxRate, err = parseDecimal("tax_rate", taxes); err != nil {
		return CatalogItem{}, err
	}
	return i, nil
}

const getCatalogItem = `-- name: GetCatalogItem :one
SELECT ` + catalogItemColumns + `
FROM catalog_items
WHERE id = $1 AND active`

func (q *Queries) GetCatalogItem(ctx context.Context, id string) (CatalogItem, error) {
	return scanCatalogItem(q.db.QueryRow(ctx, getCatalogItem, id))
}

const listCatalogItems = `-- name: ListCatalogItems :many
SELECT ` + catalogItemColumns + `
FROM catalog_items
WHERE active AND ($1::text IS NULL OR category = $1::text)
ORDER BY category, name`

func (q *Queries) ListCatalogItems(ctx context.Context, category *string) ([]CatalogItem, error) {
	rows, err := q.db.Query(ctx, listCatalogItems, category)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []CatalogItem{}
	for rows.Next() {
		i, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listCatalogCategories = `-- name: ListCatalogCategories :many
SELECT DISTINCT category
FROM catalog_items
WHERE active AND category <> ''
ORDER BY category`

func (q *Queries) ListCatalogCategories(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listCatalogCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

const upsertCatalogItem = `-- name: UpsertCatalogItem :exec
INSERT INTO catalog_items (id, name, sku, price, tax_rate, duration_minutes, description, item_type, category, active)
VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7, $8, $9, TRUE)
ON CONFLICT (id) DO UPDATE SET
    name = EXCLUDED.name,
    sku = EXCLUDED.sku,
    price = EXCLUDED.price,
    tax_rate = EXCLUDED.tax_rate,
    duration_minutes = EXCLUDED.duration_minutes,
    description = EXCLUDED.description,
    item_type = EXCLUDED.item_type,
    category = EXCLUDED.category,
    active = TRUE`

type UpsertCatalogItemParams struct {
	ID              string
	Name            string
	SKU             string
	Price           string
	TaxRate         string
	DurationMinutes *int32
	Description     string
	ItemType        string
	Category        string
}

func (q *Queries) UpsertCatalogItem(ctx context.Context, arg UpsertCatalogItemParams) error {
	_, err := q.db.Exec(ctx, upsertCatalogItem,
		arg.ID, arg.Name, arg.SKU, arg.Price, arg.TaxRate,
		arg.DurationMinutes, arg.Description, arg.ItemType, arg.Category,
	)
	return err
}
