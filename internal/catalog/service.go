package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/common"
	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

type queryProvider interface {
	GetCatalogItem(ctx context.Context, id string) (dbgen.CatalogItem, error)
	ListCatalogItems(ctx context.Context, category *string) ([]dbgen.CatalogItem, error)
	ListCatalogCategories(ctx context.Context) ([]string, error)
}

// Service serves sellable catalog records with a read-through cache.
type Service struct {
	queries queryProvider
	cache   *Cache
	log     zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries queryProvider
	Cache   *Cache
	Logger  zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Service{queries: cfg.Queries, cache: cfg.Cache, log: cfg.Logger}, nil
}

// ListItems returns active items, optionally restricted to one category.
func (s *Service) ListItems(ctx context.Context, category string) ([]pricing.CatalogItem, error) {
	category = strings.TrimSpace(category)
	key := "items:" + category
	var cached []pricing.CatalogItem
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, nil
	} else if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("catalog cache read")
	}

	var filter *string
	if category != "" {
		filter = &category
	}
	rows, err := s.queries.ListCatalogItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	items := make([]pricing.CatalogItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toCatalogItem(row))
	}
	if err := s.cache.SetJSON(ctx, key, items); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("catalog cache write")
	}
	return items, nil
}

// Categories returns the distinct categories of active items.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var cached []string
	if ok, err := s.cache.GetJSON(ctx, "categories", &cached); err == nil && ok {
		return cached, nil
	}
	rows, err := s.queries.ListCatalogCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	_ = s.cache.SetJSON(ctx, "categories", rows)
	return rows, nil
}

// Get returns a single active item.
func (s *Service) Get(ctx context.Context, id string) (pricing.CatalogItem, error) {
	item, ok, err := s.Lookup(ctx, id)
	if err != nil {
		return pricing.CatalogItem{}, err
	}
	if !ok {
		return pricing.CatalogItem{}, &common.AppError{Code: "NOT_FOUND", Message: "catalog item not found", HTTPStatus: http.StatusNotFound}
	}
	return item, nil
}

// Lookup resolves an item by id, reporting whether it exists.
func (s *Service) Lookup(ctx context.Context, id string) (pricing.CatalogItem, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return pricing.CatalogItem{}, false, nil
	}
	key := "item:" + id
	var cached pricing.CatalogItem
	if ok, err := s.cache.GetJSON(ctx, key, &cached); err == nil && ok {
		return cached, true, nil
	}
	row, err := s.queries.GetCatalogItem(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pricing.CatalogItem{}, false, nil
		}
		return pricing.CatalogItem{}, false, fmt.Errorf("get catalog item: %w", err)
	}
	item := toCatalogItem(row)
	_ = s.cache.SetJSON(ctx, key, item)
	return item, true, nil
}

func toCatalogItem(row dbgen.CatalogItem) pricing.CatalogItem {
	item := pricing.CatalogItem{
		ID:          row.ID,
		Name:        row.Name,
		SKU:         row.SKU,
		Price:       row.Price,
		TaxRate:     row.TaxRate,
		Description: row.Description,
		Type:        row.ItemType,
		Category:    row.Category,
	}
	if row.DurationMinutes != nil {
		d := int(*row.DurationMinutes)
		item.Duration = &d
	}
	return item
}
