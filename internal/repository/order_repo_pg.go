package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepository interface {
	InTx(ctx context.Context, fn func(OrderTx) error) error
	// List returns orders with their tickets; a nil userID means every user.
	List(ctx context.Context, userID *int64) ([]domain.Order, error)
	ListTickets(ctx context.Context, userID *int64) ([]domain.TicketDetail, error)
	TicketsDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.TicketDetail, error)
}

type OrderTx interface {
	InsertOrder(ctx context.Context, o *domain.Order) error
	SeatMap(ctx context.Context, flightID int64) (*domain.Airplane, error)
	SeatTaken(ctx context.Context, flightID int64, row, seat int) (bool, error)
	InsertTicket(ctx context.Context, t *domain.Ticket) error
}

type PGOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PGOrderRepository{db: db}
}

func (r *PGOrderRepository) InTx(ctx context.Context, fn func(OrderTx) error) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgOrderTx{tx: tx})
	})
}

func (r *PGOrderRepository) List(ctx context.Context, userID *int64) ([]domain.Order, error) {
	query := `SELECT id, user_id, created_at FROM orders`
	var args []any
	if userID != nil {
		query += ` WHERE user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	index := make(map[int64]int)
	ids := make([]int64, 0)
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.Tickets = make([]domain.Ticket, 0)
		index[o.ID] = len(orders)
		ids = append(ids, o.ID)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	trows, err := r.db.Query(ctx, `
SELECT id, flight_id, order_id, row_no, seat_no
FROM tickets WHERE order_id = ANY($1)
ORDER BY id`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to list order tickets: %w", err)
	}
	defer trows.Close()

	for trows.Next() {
		var t domain.Ticket
		if err := trows.Scan(&t.ID, &t.FlightID, &t.OrderID, &t.Row, &t.Seat); err != nil {
			return nil, err
		}
		i := index[t.OrderID]
		orders[i].Tickets = append(orders[i].Tickets, t)
	}
	return orders, trows.Err()
}

const ticketDetailSelect = `
SELECT t.id, t.flight_id, t.order_id, t.row_no, t.seat_no, o.user_id,
       src.name || ' - ' || dst.name, a.name, f.departure_time, f.arrival_time
FROM tickets t
JOIN orders o ON o.id = t.order_id
JOIN flights f ON f.id = t.flight_id
JOIN routes r ON r.id = f.route_id
JOIN airports src ON src.id = r.source_id
JOIN airports dst ON dst.id = r.destination_id
JOIN airplanes a ON a.id = f.airplane_id`

func (r *PGOrderRepository) ListTickets(ctx context.Context, userID *int64) ([]domain.TicketDetail, error) {
	query := ticketDetailSelect
	var args []any
	if userID != nil {
		query += ` WHERE o.user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY f.departure_time, t.id`
	return r.queryTickets(ctx, query, args...)
}

// TicketsDepartingBetween returns tickets whose flight departs in [from, to).
func (r *PGOrderRepository) TicketsDepartingBetween(ctx context.Context, from, to time.Time) ([]domain.TicketDetail, error) {
	return r.queryTickets(ctx, ticketDetailSelect+`
WHERE f.departure_time >= $1 AND f.departure_time < $2
ORDER BY f.departure_time, t.id`, from, to)
}

func (r *PGOrderRepository) queryTickets(ctx context.Context, query string, args ...any) ([]domain.TicketDetail, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]domain.TicketDetail, 0)
	for rows.Next() {
		var t domain.TicketDetail
		if err := rows.Scan(&t.ID, &t.FlightID, &t.OrderID, &t.Row, &t.Seat, &t.UserID,
			&t.RouteName, &t.AirplaneName, &t.DepartureTime, &t.ArrivalTime); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

type pgOrderTx struct {
	tx pgx.Tx
}

func (t *pgOrderTx) InsertOrder(ctx context.Context, o *domain.Order) error {
	err := t.tx.QueryRow(ctx, `INSERT INTO orders (user_id) VALUES ($1) RETURNING id, created_at`, o.UserID).
		Scan(&o.ID, &o.CreatedAt)
	return translate(err)
}

// SeatMap reads the seat grid of the flight's airplane. KEY SHARE holds off a
// concurrent grid change until the order commits.
func (t *pgOrderTx) SeatMap(ctx context.Context, flightID int64) (*domain.Airplane, error) {
	var a domain.Airplane
	err := t.tx.QueryRow(ctx, `
SELECT a.id, a.name, a.rows, a.seats_in_row, COALESCE(a.airplane_type_id, 0)
FROM flights f
JOIN airplanes a ON a.id = f.airplane_id
WHERE f.id = $1
FOR KEY SHARE OF a`, flightID).Scan(&a.ID, &a.Name, &a.Rows, &a.SeatsInRow, &a.AirplaneTypeID)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *pgOrderTx) SeatTaken(ctx context.Context, flightID int64, row, seat int) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM tickets WHERE flight_id = $1 AND row_no = $2 AND seat_no = $3)`,
		flightID, row, seat).Scan(&taken)
	if err != nil {
		return false, translate(err)
	}
	return taken, nil
}

func (t *pgOrderTx) InsertTicket(ctx context.Context, tk *domain.Ticket) error {
	err := t.tx.QueryRow(ctx, `
INSERT INTO tickets (flight_id, order_id, row_no, seat_no)
VALUES ($1, $2, $3, $4)
RETURNING id`, tk.FlightID, tk.OrderID, tk.Row, tk.Seat).Scan(&tk.ID)
	return translate(err)
}

var (
	_ OrderRepository = (*PGOrderRepository)(nil)
	_ OrderTx         = (*pgOrderTx)(nil)
)
