package invoice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
)

// ErrNotFound indicates the invoice does not exist.
var ErrNotFound = errors.New("invoice not found")

// Querier defines the read queries used for invoices.
type Querier interface {
	GetInvoice(ctx context.Context, id string) (dbgen.Invoice, error)
	ListInvoices(ctx context.Context, arg dbgen.ListInvoicesParams) ([]dbgen.Invoice, error)
	CountInvoices(ctx context.Context, sessionID *string) (int64, error)
}

// Service reads finalized invoices.
type Service struct {
	Q Querier
}

// List returns invoices newest first with the total count, optionally scoped to a session.
func (s *Service) List(ctx context.Context, sessionID string, limit, offset int) ([]Invoice, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("invoice service not configured")
	}
	var filter *string
	if sid := strings.TrimSpace(sessionID); sid != "" {
		if _, err := uuid.Parse(sid); err != nil {
			return []Invoice{}, 0, nil
		}
		filter = &sid
	}
	total, err := s.Q.CountInvoices(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count invoices: %w", err)
	}
	rows, err := s.Q.ListInvoices(ctx, dbgen.ListInvoicesParams{SessionID: filter, Limit: int32(limit), Offset: int32(offset)})
	if err != nil {
		return nil, 0, fmt.Errorf("list invoices: %w", err)
	}
	out := make([]Invoice, 0, len(rows))
	for _, row := range rows {
		inv, err := FromRow(row)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, inv)
	}
	return out, total, nil
}

// Get returns one invoice.
func (s *Service) Get(ctx context.Context, id string) (Invoice, error) {
	if s == nil || s.Q == nil {
		return Invoice{}, errors.New("invoice service not configured")
	}
	if _, err := uuid.Parse(id); err != nil {
		return Invoice{}, ErrNotFound
	}
	row, err := s.Q.GetInvoice(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return FromRow(row)
}
