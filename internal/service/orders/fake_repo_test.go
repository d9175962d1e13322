package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

type seatKey struct {
	flightID  int64
	row, seat int
}

// fakeOrderRepo gives each transaction read-committed visibility and models
// the (flight, row, seat) unique index: an insert colliding with any other
// row, committed or not, fails.
type fakeOrderRepo struct {
	mu        sync.Mutex
	planes    map[int64]domain.Airplane
	tickets   map[seatKey]domain.Ticket
	pending   map[seatKey]int
	orders    map[int64]domain.Order
	nextOrder int64
	nextTk    int64
	txSeq     int
	conflicts int
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		planes: map[int64]domain.Airplane{
			1: {ID: 1, Name: "P", Rows: 10, SeatsInRow: 4},
			2: {ID: 2, Name: "Small", Rows: 2, SeatsInRow: 2},
		},
		tickets: map[seatKey]domain.Ticket{},
		pending: map[seatKey]int{},
		orders:  map[int64]domain.Order{},
	}
}

func (r *fakeOrderRepo) ticketCount(flightID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k := range r.tickets {
		if k.flightID == flightID && r.pending[k] == 0 {
			n++
		}
	}
	return n
}

func (r *fakeOrderRepo) orderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders)
}

func (r *fakeOrderRepo) AvailableSeats(_ context.Context, flightID int64) (domain.Availability, error) {
	plane, ok := r.planes[flightID]
	if !ok {
		return domain.Availability{}, domain.ErrNotFound
	}
	taken := r.ticketCount(flightID)
	return domain.Availability{FlightID: flightID, Capacity: plane.Capacity(), Taken: taken, TicketsAvailable: plane.Capacity() - taken}, nil
}

func (r *fakeOrderRepo) InTx(ctx context.Context, fn func(repository.OrderTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.conflicts > 0 {
		r.conflicts--
		r.mu.Unlock()
		return fmt.Errorf("%w: deadlock detected", repository.ErrWriteConflict)
	}
	r.txSeq++
	tx := &fakeOrderTx{repo: r, id: r.txSeq}
	r.mu.Unlock()

	err := fn(tx)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range tx.inserted {
		if err != nil {
			delete(r.tickets, k)
		}
		delete(r.pending, k)
	}
	if err == nil && tx.order != nil {
		r.orders[tx.order.ID] = *tx.order
	}
	return err
}

func (r *fakeOrderRepo) List(_ context.Context, userID *int64) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Order, 0)
	for _, o := range r.orders {
		if userID != nil && o.UserID != *userID {
			continue
		}
		o.Tickets = make([]domain.Ticket, 0)
		for k, t := range r.tickets {
			if t.OrderID == o.ID && r.pending[k] == 0 {
				o.Tickets = append(o.Tickets, t)
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeOrderRepo) ListTickets(_ context.Context, userID *int64) ([]domain.TicketDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.TicketDetail, 0)
	for k, t := range r.tickets {
		o := r.orders[t.OrderID]
		if r.pending[k] != 0 || (userID != nil && o.UserID != *userID) {
			continue
		}
		out = append(out, domain.TicketDetail{Ticket: t, UserID: o.UserID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeOrderRepo) TicketsDepartingBetween(context.Context, time.Time, time.Time) ([]domain.TicketDetail, error) {
	return nil, nil
}

type fakeOrderTx struct {
	repo     *fakeOrderRepo
	id       int
	order    *domain.Order
	inserted []seatKey
}

func (t *fakeOrderTx) InsertOrder(_ context.Context, o *domain.Order) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.nextOrder++
	o.ID = t.repo.nextOrder
	o.CreatedAt = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	t.order = o
	return nil
}

func (t *fakeOrderTx) SeatMap(_ context.Context, flightID int64) (*domain.Airplane, error) {
	plane, ok := t.repo.planes[flightID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &plane, nil
}

func (t *fakeOrderTx) SeatTaken(_ context.Context, flightID int64, row, seat int) (bool, error) {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	k := seatKey{flightID, row, seat}
	if _, ok := t.repo.tickets[k]; !ok {
		return false, nil
	}
	owner := t.repo.pending[k]
	return owner == 0 || owner == t.id, nil
}

func (t *fakeOrderTx) InsertTicket(_ context.Context, tk *domain.Ticket) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	k := seatKey{tk.FlightID, tk.Row, tk.Seat}
	if _, ok := t.repo.tickets[k]; ok {
		return domain.SeatTakenError()
	}
	t.repo.nextTk++
	tk.ID = t.repo.nextTk
	t.repo.tickets[k] = *tk
	t.repo.pending[k] = t.id
	t.inserted = append(t.inserted, k)
	return nil
}

var (
	_ repository.OrderRepository = (*fakeOrderRepo)(nil)
	_ repository.OrderTx         = (*fakeOrderTx)(nil)
)
