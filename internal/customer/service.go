package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// ErrNotFound indicates the customer does not exist.
var ErrNotFound = errors.New("customer not found")

// ErrInvalidInput is returned when the provided payload is invalid.
var ErrInvalidInput = errors.New("invalid input")

// Querier defines the database access required for customers.
type Querier interface {
	GetCustomer(ctx context.Context, id string) (dbgen.Customer, error)
	ListCustomers(ctx context.Context, arg dbgen.ListCustomersParams) ([]dbgen.Customer, error)
	CreateCustomer(ctx context.Context, arg dbgen.CreateCustomerParams) (dbgen.Customer, error)
}

// Customer is the public customer record.
type Customer struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	TaxID      string          `json:"taxId,omitempty"`
	Balance    decimal.Decimal `json:"balance"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}

// Input carries the fields accepted when creating a customer.
type Input struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"omitempty,max=32"`
	TaxID string `json:"taxId" validate:"omitempty,max=64"`
}

// Service manages the customer directory.
type Service struct {
	Q Querier
}

// List returns customers matching search by name or phone.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Customer, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("customer service not configured")
	}
	rows, err := s.Q.ListCustomers(ctx, dbgen.ListCustomersParams{
		Search: strings.TrimSpace(search),
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(row))
	}
	return out, nil
}

// Create stores a new customer.
func (s *Service) Create(ctx context.Context, in Input) (Customer, error) {
	if s == nil || s.Q == nil {
		return Customer{}, errors.New("customer service not configured")
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Customer{}, fmt.Errorf("name required: %w", ErrInvalidInput)
	}
	row, err := s.Q.CreateCustomer(ctx, dbgen.CreateCustomerParams{
		Name:  in.Name,
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
		TaxID: strings.TrimSpace(in.TaxID),
	})
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return fromRow(row), nil
}

// Get returns one customer.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	if s == nil || s.Q == nil {
		return Customer{}, errors.New("customer service not configured")
	}
	if _, err := uuid.Parse(strings.TrimSpace(id)); err != nil {
		return Customer{}, ErrNotFound
	}
	row, err := s.Q.GetCustomer(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return fromRow(row), nil
}

// Lookup resolves the cart-facing customer reference.
func (s *Service) Lookup(ctx context.Context, id string) (pricing.Customer, bool, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return pricing.Customer{}, false, nil
		}
		return pricing.Customer{}, false, err
	}
	return pricing.Customer{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone, TaxID: c.TaxID}, true, nil
}

func fromRow(row dbgen.Customer) Customer {
	return Customer{
		ID:         row.ID,
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		TaxID:      row.TaxID,
		Balance:    row.Balance,
		TotalSpent: row.TotalSpent,
	}
}
