package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	dbgen "github.com/noah-isme/backend-pos/internal/db/gen"
	"github.com/noah-isme/backend-pos/internal/events"
	"github.com/noah-isme/backend-pos/internal/obs"
)

var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("cash session not found")
	// ErrSessionAlreadyOpen is returned when the operator already has an open session.
	ErrSessionAlreadyOpen = errors.New("cash session already open")
	// ErrSessionNotOpen is returned when a closed session is used.
	ErrSessionNotOpen = errors.New("cash session not open")
	// ErrInvalidInput is returned when the provided payload is invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotOwner is returned when an operator acts on another operator's session.
	ErrNotOwner = errors.New("cash session belongs to another operator")
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

const uniqueViolation = "23505"

// Querier defines the database access required for cash sessions.
type Querier interface {
	CreateCashSession(ctx context.Context, operatorID, openingCash string) (dbgen.CashSession, error)
	GetCashSession(ctx context.Context, id string) (dbgen.CashSession, error)
	GetOpenCashSession(ctx context.Context, operatorID string) (dbgen.CashSession, error)
	CloseCashSession(ctx context.Context, id, closingCash string) (dbgen.CashSession, error)
	ListCashSessions(ctx context.Context, arg dbgen.ListCashSessionsParams) ([]dbgen.CashSession, error)
}

// Lookup is the subset of queries used to pick the session a sale is booked on.
type Lookup interface {
	GetCashSession(ctx context.Context, id string) (dbgen.CashSession, error)
	GetOpenCashSession(ctx context.Context, operatorID string) (dbgen.CashSession, error)
}

// SaleRecorder is the subset of queries used to book a sale on a session.
type SaleRecorder interface {
	RecordCashSessionSale(ctx context.Context, id, amount string) (dbgen.CashSession, error)
}

// Emitter publishes domain events.
type Emitter interface {
	Emit(ctx context.Context, topic, aggregateID string, payload any) (dbgen.DomainEvent, error)
}

// Session is the public cash register session record.
type Session struct {
	ID           string           `json:"id"`
	OperatorID   string           `json:"operatorId"`
	Status       string           `json:"status"`
	OpeningCash  decimal.Decimal  `json:"openingCash"`
	ClosingCash  *decimal.Decimal `json:"closingCash"`
	ExpectedCash *decimal.Decimal `json:"expectedCash"`
	Variance     *decimal.Decimal `json:"variance"`
	TotalSales   decimal.Decimal  `json:"totalSales"`
	InvoiceCount int              `json:"invoiceCount"`
	OpenedAt     time.Time        `json:"openedAt"`
	ClosedAt     *time.Time       `json:"closedAt"`
}

// Service opens, closes and lists cash register sessions.
type Service struct {
	Q      Querier
	Events Emitter
	Logger zerolog.Logger
}

func (s *Service) ready() error {
	if s == nil || s.Q == nil {
		return errors.New("session service not configured")
	}
	return nil
}

// Open starts a session for the operator. Only one session per operator may be open.
func (s *Service) Open(ctx context.Context, operatorID string, openingCash decimal.Decimal) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	operatorID = strings.TrimSpace(operatorID)
	if operatorID == "" {
		return Session{}, fmt.Errorf("operator required: %w", ErrInvalidInput)
	}
	if openingCash.IsNegative() {
		return Session{}, fmt.Errorf("opening cash must not be negative: %w", ErrInvalidInput)
	}
	if _, err := s.Q.GetOpenCashSession(ctx, operatorID); err == nil {
		return Session{}, ErrSessionAlreadyOpen
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return Session{}, fmt.Errorf("get open session: %w", err)
	}
	row, err := s.Q.CreateCashSession(ctx, operatorID, openingCash.String())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Session{}, ErrSessionAlreadyOpen
		}
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	out := FromRow(row)
	s.emit(ctx, events.TopicSessionOpened, "opened", out)
	return out, nil
}

// Active returns the operator's open session.
func (s *Service) Active(ctx context.Context, operatorID string) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	row, err := s.Q.GetOpenCashSession(ctx, strings.TrimSpace(operatorID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get open session: %w", err)
	}
	return FromRow(row), nil
}

// Get returns a session by id.
func (s *Service) Get(ctx context.Context, id string) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return Session{}, ErrNotFound
	}
	row, err := s.Q.GetCashSession(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return FromRow(row), nil
}

// Close ends the operator's session. Expected cash is the opening float plus
// total sales; variance is the counted closing cash minus the expected cash.
func (s *Service) Close(ctx context.Context, id, operatorID string, closingCash decimal.Decimal) (Session, error) {
	if err := s.ready(); err != nil {
		return Session{}, err
	}
	if closingCash.IsNegative() {
		return Session{}, fmt.Errorf("closing cash must not be negative: %w", ErrInvalidInput)
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if current.OperatorID != strings.TrimSpace(operatorID) {
		return Session{}, ErrNotOwner
	}
	if current.Status != StatusOpen {
		return Session{}, ErrSessionNotOpen
	}
	row, err := s.Q.CloseCashSession(ctx, id, closingCash.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotOpen
		}
		return Session{}, fmt.Errorf("close session: %w", err)
	}
	out := FromRow(row)
	s.emit(ctx, events.TopicSessionClosed, "closed", out)
	return out, nil
}

// List returns sessions newest first, optionally filtered by operator.
func (s *Service) List(ctx context.Context, operatorID string, limit, offset int) ([]Session, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	rows, err := s.Q.ListCashSessions(ctx, dbgen.ListCashSessionsParams{
		OperatorID: strings.TrimSpace(operatorID),
		Limit:      int32(limit),
		Offset:     int32(offset),
	})
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]Session, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromRow(row))
	}
	return out, nil
}

func (s *Service) emit(ctx context.Context, topic, action string, sess Session) {
	if obs.SessionEventsTotal != nil {
		obs.SessionEventsTotal.WithLabelValues(action).Inc()
	}
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, sess.ID, sess); err != nil {
		s.Logger.Warn().Err(err).Str("session_id", sess.ID).Str("topic", topic).Msg("emit session event")
	}
}

// ForSale picks the session a sale by operatorID is booked on: the explicit
// session when sessionID is set, otherwise the operator's open session. A nil
// id means the sale is recorded outside any session.
func ForSale(ctx context.Context, q Lookup, sessionID, operatorID string) (*string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		row, err := q.GetOpenCashSession(ctx, operatorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("get open session: %w", err)
		}
		return &row.ID, nil
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, ErrNotFound
	}
	row, err := q.GetCashSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if row.OperatorID != operatorID {
		return nil, ErrNotOwner
	}
	if row.Status != StatusOpen {
		return nil, ErrSessionNotOpen
	}
	return &row.ID, nil
}

// RecordSale books a finalized sale on an open session. It is meant to run
// inside the checkout transaction.
func RecordSale(ctx context.Context, q SaleRecorder, id string, amount decimal.Decimal) (Session, error) {
	row, err := q.RecordCashSessionSale(ctx, id, amount.String())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Session{}, ErrSessionNotOpen
		}
		return Session{}, fmt.Errorf("record session sale: %w", err)
	}
	return FromRow(row), nil
}

// FromRow converts the database row into the public record.
func FromRow(row dbgen.CashSession) Session {
	return Session{
		ID:           row.ID,
		OperatorID:   row.OperatorID,
		Status:       row.Status,
		OpeningCash:  row.OpeningCash,
		ClosingCash:  row.ClosingCash,
		ExpectedCash: row.ExpectedCash,
		Variance:     row.Variance,
		TotalSales:   row.TotalSales,
		InvoiceCount: int(row.InvoiceCount),
		OpenedAt:     row.OpenedAt,
		ClosedAt:     row.ClosedAt,
	}
}
