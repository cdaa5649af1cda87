package main

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/db"
	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/obs"
)

type seedItem struct {
	ID       string
	Name     string
	SKU      string
	Price    string
	TaxRate  string
	Duration int32
	Type     string
	Category string
}

var catalogSeed = []seedItem{
	{"svc-haircut", "Haircut", "SVC-001", "250", "18", 30, "service", "Hair"},
	{"svc-beard", "Beard Trim", "SVC-002", "120", "18", 15, "service", "Hair"},
	{"svc-colour", "Hair Colour", "SVC-003", "1200", "18", 90, "service", "Hair"},
	{"svc-facial", "Classic Facial", "SVC-010", "900", "18", 45, "service", "Skin"},
	{"svc-manicure", "Manicure", "SVC-020", "450", "18", 40, "service", "Nails"},
	{"prd-shampoo", "Shampoo 250ml", "PRD-101", "349.50", "12", 0, "product", "Retail"},
	{"prd-serum", "Hair Serum 50ml", "PRD-102", "599", "12", 0, "product", "Retail"},
	{"prd-comb", "Wooden Comb", "PRD-103", "99", "5", 0, "product", "Retail"},
}

var customerSeed = []dbgen.CreateCustomerParams{
	{Name: "Walk-in Customer"},
	{Name: "Budi Santoso", Email: "budi@example.com", Phone: "+62 811 000 001"},
	{Name: "Siti Aminah", Email: "siti@example.com", Phone: "+62 811 000 002"},
	{Name: "Andi Pratama", Email: "andi@example.com", TaxID: "09.254.294.3-407.000"},
}

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	if err := db.Up(dbURL); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	q := dbgen.New(pool)
	seedCatalog(ctx, q, logger)
	seedCustomers(ctx, q, logger)
	purgeCatalogCache(ctx, strings.TrimSpace(os.Getenv("REDIS_URL")), logger)
	logger.Info().Msg("seeding completed")
}

func purgeCatalogCache(ctx context.Context, redisURL string, logger zerolog.Logger) {
	if redisURL == "" {
		return
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn().Err(err).Msg("parse REDIS_URL")
		return
	}
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()
	removed, err := catalog.NewCache(client, time.Minute).Purge(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("purge catalog cache")
		return
	}
	logger.Info().Int("keys", removed).Msg("catalog cache purged")
}

func seedCatalog(ctx context.Context, q *dbgen.Queries, logger zerolog.Logger) {
	for _, it := range catalogSeed {
		params := dbgen.UpsertCatalogItemParams{
			ID:       it.ID,
			Name:     it.Name,
			SKU:      it.SKU,
			Price:    it.Price,
			TaxRate:  it.TaxRate,
			ItemType: it.Type,
			Category: it.Category,
		}
		if it.Duration > 0 {
			d := it.Duration
			params.DurationMinutes = &d
		}
		if err := q.UpsertCatalogItem(ctx, params); err != nil {
			logger.Error().Err(err).Str("item", it.ID).Msg("upsert catalog item")
		}
	}
	logger.Info().Int("count", len(catalogSeed)).Msg("catalog seeded")
}

// seedCustomers only inserts into an empty directory; customers have no
// natural key to upsert on.
func seedCustomers(ctx context.Context, q *dbgen.Queries, logger zerolog.Logger) {
	existing, err := q.ListCustomers(ctx, dbgen.ListCustomersParams{Limit: 1})
	if err != nil {
		logger.Error().Err(err).Msg("list customers")
		return
	}
	if len(existing) > 0 {
		logger.Info().Msg("customers already present, skipping")
		return
	}
	for _, c := range customerSeed {
		if _, err := q.CreateCustomer(ctx, c); err != nil {
			logger.Error().Err(err).Str("customer", c.Name).Msg("create customer")
		}
	}
	logger.Info().Int("count", len(customerSeed)).Msg("customers seeded")
}
