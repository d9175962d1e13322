package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

type OrderUseCase interface {
	Create(ctx context.Context, p domain.Principal, specs []TicketSpec) (*domain.Order, error)
	List(ctx context.Context, p domain.Principal) ([]domain.Order, error)
	Tickets(ctx context.Context, p domain.Principal) ([]domain.TicketDetail, error)
}

type TicketSpec struct {
	FlightID int64
	Row      int
	Seat     int
}

type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

type OrderService struct {
	repo        repository.OrderRepository
	engine      *Engine
	invalidator Invalidator
	logger      *slog.Logger
}

type Option func(*OrderService)

// WithInvalidator evicts cached listings after an order commits so
// tickets_available follows sales.
func WithInvalidator(inv Invalidator) Option {
	return func(s *OrderService) { s.invalidator = inv }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *OrderService) { s.logger = l }
}

func NewOrderService(repo repository.OrderRepository, engine *Engine, opts ...Option) *OrderService {
	s := &OrderService{repo: repo, engine: engine, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes the order and every ticket in one transaction. Any rejected
// ticket aborts the whole order.
func (s *OrderService) Create(ctx context.Context, p domain.Principal, specs []TicketSpec) (*domain.Order, error) {
	if len(specs) == 0 {
		return nil, domain.NewValidationError(domain.CodeRequired, "tickets", "This list may not be empty.")
	}

	var (
		order *domain.Order
		err   error
	)
	for attempt := 1; attempt <= 2; attempt++ {
		order, err = s.create(ctx, p, specs)
		if !errors.Is(err, repository.ErrWriteConflict) {
			break
		}
		s.logger.InfoContext(ctx, "order write lost a race", slog.Int("attempt", attempt))
	}
	if errors.Is(err, repository.ErrWriteConflict) {
		return nil, fmt.Errorf("%w: %v", domain.ErrConflict, err)
	}
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := s.invalidator.InvalidateAll(ictx); err != nil {
			s.logger.WarnContext(ctx, "listing cache invalidation failed", slog.Int64("order_id", order.ID), slog.Any("error", err))
		}
		cancel()
	}
	return order, nil
}

func (s *OrderService) create(ctx context.Context, p domain.Principal, specs []TicketSpec) (*domain.Order, error) {
	order := &domain.Order{UserID: p.UserID}
	err := s.repo.InTx(ctx, func(tx repository.OrderTx) error {
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		order.Tickets = make([]domain.Ticket, 0, len(specs))
		for _, spec := range specs {
			// earlier tickets of this order are visible to the check
			if err := s.engine.ValidateSeat(ctx, tx, spec.FlightID, spec.Row, spec.Seat); err != nil {
				return err
			}
			t := domain.Ticket{FlightID: spec.FlightID, OrderID: order.ID, Row: spec.Row, Seat: spec.Seat}
			if err := tx.InsertTicket(ctx, &t); err != nil {
				return err
			}
			order.Tickets = append(order.Tickets, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) List(ctx context.Context, p domain.Principal) ([]domain.Order, error) {
	return s.repo.List(ctx, ownerFilter(p))
}

func (s *OrderService) Tickets(ctx context.Context, p domain.Principal) ([]domain.TicketDetail, error) {
	return s.repo.ListTickets(ctx, ownerFilter(p))
}

// ownerFilter restricts non-staff callers to their own rows.
func ownerFilter(p domain.Principal) *int64 {
	if p.IsStaff {
		return nil
	}
	id := p.UserID
	return &id
}

var _ OrderUseCase = (*OrderService)(nil)
