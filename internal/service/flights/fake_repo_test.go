package flights

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

// fakeFlightRepo holds one lock for the whole transaction, which is what the
// airplane row lock gives the real store for flights sharing an airplane.
type fakeFlightRepo struct {
	mu        sync.Mutex
	routes    map[int64]domain.Route
	airplanes map[int64]domain.Airplane
	flights   map[int64]domain.Flight
	nextID    int64

	conflicts int
	listCalls int
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{
		routes: map[int64]domain.Route{
			1: {ID: 1, Source: domain.Airport{ID: 1, Name: "Kyiv"}, Destination: domain.Airport{ID: 2, Name: "Lviv"}, Distance: 470},
		},
		airplanes: map[int64]domain.Airplane{
			1: {ID: 1, Name: "P", Rows: 10, SeatsInRow: 4},
			2: {ID: 2, Name: "Q", Rows: 20, SeatsInRow: 6},
		},
		flights: map[int64]domain.Flight{},
	}
}

func (r *fakeFlightRepo) seed(f domain.Flight) domain.Flight {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	f.ID = r.nextID
	r.flights[f.ID] = f
	return f
}

func (r *fakeFlightRepo) flight(id int64) (domain.Flight, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	return f, ok
}

func (r *fakeFlightRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}

func (r *fakeFlightRepo) List(_ context.Context, filter domain.FlightFilter) ([]domain.FlightSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++

	out := make([]domain.FlightSummary, 0)
	for _, f := range r.flights {
		if filter.FutureOnly && !f.DepartureTime.After(filter.Now) {
			continue
		}
		if filter.AirplaneID != nil && f.AirplaneID != *filter.AirplaneID {
			continue
		}
		a := r.airplanes[f.AirplaneID]
		out = append(out, domain.FlightSummary{
			ID: f.ID, RouteID: f.RouteID, RouteName: r.routes[f.RouteID].Name(),
			AirplaneID: a.ID, AirplaneName: a.Name,
			DepartureTime: f.DepartureTime, ArrivalTime: f.ArrivalTime,
			Capacity: a.Capacity(), TicketsAvailable: a.Capacity(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeFlightRepo) GetDetail(_ context.Context, id int64, futureAfter *time.Time) (*domain.FlightDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	if !ok || (futureAfter != nil && !f.DepartureTime.After(*futureAfter)) {
		return nil, domain.ErrNotFound
	}
	a := r.airplanes[f.AirplaneID]
	return &domain.FlightDetail{
		ID: f.ID, Route: r.routes[f.RouteID], Airplane: a,
		DepartureTime: f.DepartureTime, ArrivalTime: f.ArrivalTime,
		Crew: []domain.Crew{}, TakenSeats: []domain.Seat{}, TicketsAvailable: a.Capacity(),
	}, nil
}

func (r *fakeFlightRepo) AvailableSeats(context.Context, int64) (domain.Availability, error) {
	return domain.Availability{}, nil
}

func (r *fakeFlightRepo) InTx(ctx context.Context, fn func(repository.FlightTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflicts > 0 {
		r.conflicts--
		return fmt.Errorf("%w: conflicting key value violates exclusion constraint", repository.ErrWriteConflict)
	}

	staged := make(map[int64]domain.Flight, len(r.flights))
	for id, f := range r.flights {
		staged[id] = f
	}
	tx := &fakeFlightTx{repo: r, flights: staged, nextID: r.nextID}
	if err := fn(tx); err != nil {
		return err
	}
	r.flights = tx.flights
	r.nextID = tx.nextID
	return nil
}

type fakeFlightTx struct {
	repo    *fakeFlightRepo
	flights map[int64]domain.Flight
	nextID  int64
}

func (t *fakeFlightTx) GetRoute(_ context.Context, id int64) (*domain.Route, error) {
	rt, ok := t.repo.routes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &rt, nil
}

func (t *fakeFlightTx) LockAirplane(_ context.Context, id int64) (*domain.Airplane, error) {
	a, ok := t.repo.airplanes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &a, nil
}

func (t *fakeFlightTx) GetForUpdate(_ context.Context, id int64) (*domain.Flight, error) {
	f, ok := t.flights[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (t *fakeFlightTx) FindOverlapping(_ context.Context, airplaneID int64, w domain.Window, excludeID int64) ([]int64, error) {
	var ids []int64
	for id, f := range t.flights {
		if f.AirplaneID == airplaneID && id != excludeID && f.Window().Overlaps(w) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *fakeFlightTx) Insert(_ context.Context, f *domain.Flight) error {
	t.nextID++
	f.ID = t.nextID
	t.flights[f.ID] = *f
	return nil
}

func (t *fakeFlightTx) Update(_ context.Context, f *domain.Flight) error {
	if _, ok := t.flights[f.ID]; !ok {
		return domain.ErrNotFound
	}
	t.flights[f.ID] = *f
	return nil
}

func (t *fakeFlightTx) Delete(_ context.Context, id int64) error {
	if _, ok := t.flights[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.flights, id)
	return nil
}

var (
	_ repository.FlightRepository = (*fakeFlightRepo)(nil)
	_ repository.FlightTx         = (*fakeFlightTx)(nil)
)
