package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
)

// Querier defines the database access required for reports.
type Querier interface {
	GetSalesDailyRange(ctx context.Context, from, to time.Time) ([]dbgen.SalesDailyRow, error)
}

// Day is one row of the daily sales report.
type Day struct {
	Date          string          `json:"date"`
	InvoiceCount  int64           `json:"invoiceCount"`
	Revenue       decimal.Decimal `json:"revenue"`
	TaxTotal      decimal.Decimal `json:"taxTotal"`
	DiscountTotal decimal.Decimal `json:"discountTotal"`
	BalanceDue    decimal.Decimal `json:"balanceDue"`
}

// Sales is the daily sales report for a range, with its totals.
type Sales struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Days   []Day     `json:"days"`
	Totals Day       `json:"totals"`
}

// Service provides cached sales reports.
type Service struct {
	Q            Querier
	R            *redis.Client
	TTL          time.Duration
	DefaultRange int
	Now          func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func cacheKey(parts ...any) string {
	formatted := make([]string, 0, len(parts))
	for _, part := range parts {
		formatted = append(formatted, fmt.Sprint(part))
	}
	return strings.Join(formatted, ":")
}

// SalesRange returns per-day sales between from (inclusive) and to (exclusive).
func (s *Service) SalesRange(ctx context.Context, from, to time.Time) (Sales, error) {
	if s == nil || s.Q == nil {
		return Sales{}, fmt.Errorf("reports service not configured")
	}
	key := cacheKey("rpt", "sales", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339))
	if cached, ok := s.load(ctx, key); ok {
		return cached, nil
	}
	rows, err := s.Q.GetSalesDailyRange(ctx, from, to)
	if err != nil {
		return Sales{}, err
	}
	out := Sales{
		From:   from,
		To:     to,
		Days:   make([]Day, 0, len(rows)),
		Totals: Day{Date: "total"},
	}
	for _, row := range rows {
		day := Day{
			Date:          row.Day.UTC().Format("2006-01-02"),
			InvoiceCount:  row.InvoiceCount,
			Revenue:       row.Revenue,
			TaxTotal:      row.TaxTotal,
			DiscountTotal: row.DiscountTotal,
			BalanceDue:    row.BalanceDue,
		}
		out.Days = append(out.Days, day)
		out.Totals.InvoiceCount += day.InvoiceCount
		out.Totals.Revenue = out.Totals.Revenue.Add(day.Revenue)
		out.Totals.TaxTotal = out.Totals.TaxTotal.Add(day.TaxTotal)
		out.Totals.DiscountTotal = out.Totals.DiscountTotal.Add(day.DiscountTotal)
		out.Totals.BalanceDue = out.Totals.BalanceDue.Add(day.BalanceDue)
	}
	s.store(ctx, key, out)
	return out, nil
}

func (s *Service) load(ctx context.Context, key string) (Sales, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Sales{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Sales{}, false
	}
	var out Sales
	if err := json.Unmarshal(data, &out); err != nil {
		return Sales{}, false
	}
	return out, true
}

func (s *Service) store(ctx context.Context, key string, value Sales) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
