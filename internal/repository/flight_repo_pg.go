package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	List(ctx context.Context, filter domain.FlightFilter) ([]domain.FlightSummary, error)
	GetDetail(ctx context.Context, id int64, futureAfter *time.Time) (*domain.FlightDetail, error)
	AvailableSeats(ctx context.Context, flightID int64) (domain.Availability, error)
	InTx(ctx context.Context, fn func(FlightTx) error) error
}

// FlightTx is the write side of a flight mutation. All methods run in the
// transaction opened by InTx.
type FlightTx interface {
	GetRoute(ctx context.Context, id int64) (*domain.Route, error)
	LockAirplane(ctx context.Context, id int64) (*domain.Airplane, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Flight, error)
	FindOverlapping(ctx context.Context, airplaneID int64, w domain.Window, excludeID int64) ([]int64, error)
	Insert(ctx context.Context, f *domain.Flight) error
	Update(ctx context.Context, f *domain.Flight) error
	Delete(ctx context.Context, id int64) error
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightSummarySelect = `
SELECT f.id, f.route_id, src.name || ' - ' || dst.name, f.airplane_id, a.name,
       f.departure_time, f.arrival_time,
       a.rows * a.seats_in_row,
       a.rows * a.seats_in_row - COUNT(t.id)
FROM flights f
JOIN routes r ON r.id = f.route_id
JOIN airports src ON src.id = r.source_id
JOIN airports dst ON dst.id = r.destination_id
JOIN airplanes a ON a.id = f.airplane_id
LEFT JOIN tickets t ON t.flight_id = f.id`

func (r *PGFlightRepository) List(ctx context.Context, filter domain.FlightFilter) ([]domain.FlightSummary, error) {
	where, args := flightConditions(filter)
	query := flightSummarySelect + where +
		"\nGROUP BY f.id, a.id, src.id, dst.id\nORDER BY " + flightOrdering(filter.Ordering)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", translate(err))
	}
	defer rows.Close()

	flights := make([]domain.FlightSummary, 0)
	for rows.Next() {
		var f domain.FlightSummary
		if err := rows.Scan(&f.ID, &f.RouteID, &f.RouteName, &f.AirplaneID, &f.AirplaneName,
			&f.DepartureTime, &f.ArrivalTime, &f.Capacity, &f.TicketsAvailable); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

func flightConditions(filter domain.FlightFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.FutureOnly {
		add("f.departure_time > $%d", filter.Now)
	}
	if filter.RouteID != nil {
		add("f.route_id = $%d", *filter.RouteID)
	}
	if filter.AirplaneID != nil {
		add("f.airplane_id = $%d", *filter.AirplaneID)
	}
	if filter.DepartureTime != nil {
		add("f.departure_time = $%d", *filter.DepartureTime)
	}
	if filter.ArrivalTime != nil {
		add("f.arrival_time = $%d", *filter.ArrivalTime)
	}
	if filter.DepartureFrom != nil {
		add("f.departure_time >= $%d", *filter.DepartureFrom)
	}
	if filter.DepartureTo != nil {
		add("f.departure_time <= $%d", *filter.DepartureTo)
	}
	if filter.ArrivalFrom != nil {
		add("f.arrival_time >= $%d", *filter.ArrivalFrom)
	}
	if filter.ArrivalTo != nil {
		add("f.arrival_time <= $%d", *filter.ArrivalTo)
	}
	if filter.Search != "" {
		add("(a.name ILIKE $%[1]d OR (src.name || ' - ' || dst.name) ILIKE $%[1]d)", "%"+likeEscaper.Replace(filter.Search)+"%")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "\nWHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// flightOrdering renders a comma separated ordering parameter. Unknown fields
// are ignored.
func flightOrdering(ordering string) string {
	var terms []string
	for _, field := range strings.Split(ordering, ",") {
		field = strings.TrimSpace(field)
		dir := "ASC"
		if strings.HasPrefix(field, "-") {
			dir = "DESC"
			field = field[1:]
		}
		if column, ok := domain.FlightOrderingFields[field]; ok {
			terms = append(terms, column+" "+dir)
		}
	}
	if len(terms) == 0 {
		terms = append(terms, "f.departure_time ASC")
	}
	return strings.Join(append(terms, "f.id ASC"), ", ")
}

func (r *PGFlightRepository) GetDetail(ctx context.Context, id int64, futureAfter *time.Time) (*domain.FlightDetail, error) {
	query := `
SELECT f.id, f.departure_time, f.arrival_time,
       r.id, r.distance, src.id, src.name, dst.id, dst.name,
       a.id, a.name, a.rows, a.seats_in_row, COALESCE(a.airplane_type_id, 0)
FROM flights f
JOIN routes r ON r.id = f.route_id
JOIN airports src ON src.id = r.source_id
JOIN airports dst ON dst.id = r.destination_id
JOIN airplanes a ON a.id = f.airplane_id
WHERE f.id = $1`
	args := []any{id}
	if futureAfter != nil {
		query += " AND f.departure_time > $2"
		args = append(args, *futureAfter)
	}

	var d domain.FlightDetail
	if err := r.db.QueryRow(ctx, query, args...).Scan(&d.ID, &d.DepartureTime, &d.ArrivalTime,
		&d.Route.ID, &d.Route.Distance, &d.Route.Source.ID, &d.Route.Source.Name, &d.Route.Destination.ID, &d.Route.Destination.Name,
		&d.Airplane.ID, &d.Airplane.Name, &d.Airplane.Rows, &d.Airplane.SeatsInRow, &d.Airplane.AirplaneTypeID); err != nil {
		return nil, translate(err)
	}

	crew, err := r.flightCrew(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Crew = crew

	rows, err := r.db.Query(ctx, `SELECT row_no, seat_no FROM tickets WHERE flight_id = $1 ORDER BY row_no, seat_no`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load taken seats: %w", err)
	}
	defer rows.Close()

	d.TakenSeats = make([]domain.Seat, 0)
	for rows.Next() {
		var s domain.Seat
		if err := rows.Scan(&s.Row, &s.Seat); err != nil {
			return nil, err
		}
		d.TakenSeats = append(d.TakenSeats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	d.TicketsAvailable = d.Airplane.Capacity() - len(d.TakenSeats)
	return &d, nil
}

func (r *PGFlightRepository) flightCrew(ctx context.Context, flightID int64) ([]domain.Crew, error) {
	rows, err := r.db.Query(ctx, `
SELECT c.id, c.first_name, c.last_name
FROM crews c
JOIN flight_crews fc ON fc.crew_id = c.id
WHERE fc.flight_id = $1
ORDER BY c.id`, flightID)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew: %w", err)
	}
	defer rows.Close()

	crew := make([]domain.Crew, 0)
	for rows.Next() {
		var c domain.Crew
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName); err != nil {
			return nil, err
		}
		crew = append(crew, c)
	}
	return crew, rows.Err()
}

// AvailableSeats counts in one statement so the capacity and the ticket count
// come from the same snapshot.
func (r *PGFlightRepository) AvailableSeats(ctx context.Context, flightID int64) (domain.Availability, error) {
	av := domain.Availability{FlightID: flightID}
	err := r.db.QueryRow(ctx, `
SELECT f.departure_time, a.rows * a.seats_in_row, COUNT(t.id)
FROM flights f
JOIN airplanes a ON a.id = f.airplane_id
LEFT JOIN tickets t ON t.flight_id = f.id
WHERE f.id = $1
GROUP BY f.id, a.id`, flightID).Scan(&av.DepartureTime, &av.Capacity, &av.Taken)
	if err != nil {
		return av, translate(err)
	}
	av.TicketsAvailable = av.Capacity - av.Taken
	return av, nil
}

func (r *PGFlightRepository) InTx(ctx context.Context, fn func(FlightTx) error) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(&pgFlightTx{tx: tx})
	})
}

type pgFlightTx struct {
	tx pgx.Tx
}

func (t *pgFlightTx) GetRoute(ctx context.Context, id int64) (*domain.Route, error) {
	var rt domain.Route
	err := t.tx.QueryRow(ctx, `
SELECT r.id, r.distance, src.id, src.name, dst.id, dst.name
FROM routes r
JOIN airports src ON src.id = r.source_id
JOIN airports dst ON dst.id = r.destination_id
WHERE r.id = $1`, id).Scan(&rt.ID, &rt.Distance, &rt.Source.ID, &rt.Source.Name, &rt.Destination.ID, &rt.Destination.Name)
	if err != nil {
		return nil, translate(err)
	}
	return &rt, nil
}

// LockAirplane serialises schedule changes per airplane. NO KEY UPDATE does
// not conflict with the KEY SHARE lock ticket inserts take.
func (t *pgFlightTx) LockAirplane(ctx context.Context, id int64) (*domain.Airplane, error) {
	var a domain.Airplane
	err := t.tx.QueryRow(ctx, `
SELECT id, name, rows, seats_in_row, COALESCE(airplane_type_id, 0)
FROM airplanes WHERE id = $1
FOR NO KEY UPDATE`, id).Scan(&a.ID, &a.Name, &a.Rows, &a.SeatsInRow, &a.AirplaneTypeID)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (t *pgFlightTx) GetForUpdate(ctx context.Context, id int64) (*domain.Flight, error) {
	var f domain.Flight
	err := t.tx.QueryRow(ctx, `
SELECT id, route_id, airplane_id, departure_time, arrival_time
FROM flights WHERE id = $1
FOR NO KEY UPDATE`, id).Scan(&f.ID, &f.RouteID, &f.AirplaneID, &f.DepartureTime, &f.ArrivalTime)
	if err != nil {
		return nil, translate(err)
	}

	rows, err := t.tx.Query(ctx, `SELECT crew_id FROM flight_crews WHERE flight_id = $1 ORDER BY crew_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load crew ids: %w", err)
	}
	f.CrewIDs, err = pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (t *pgFlightTx) FindOverlapping(ctx context.Context, airplaneID int64, w domain.Window, excludeID int64) ([]int64, error) {
	rows, err := t.tx.Query(ctx, `
SELECT id FROM flights
WHERE airplane_id = $1 AND departure_time < $3 AND arrival_time > $2 AND id <> $4
ORDER BY departure_time`, airplaneID, w.Departure, w.Arrival, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to find overlapping flights: %w", translate(err))
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (t *pgFlightTx) Insert(ctx context.Context, f *domain.Flight) error {
	err := t.tx.QueryRow(ctx, `
INSERT INTO flights (route_id, airplane_id, departure_time, arrival_time)
VALUES ($1, $2, $3, $4)
RETURNING id`, f.RouteID, f.AirplaneID, f.DepartureTime, f.ArrivalTime).Scan(&f.ID)
	if err != nil {
		return translate(err)
	}
	return t.setCrew(ctx, f.ID, f.CrewIDs)
}

func (t *pgFlightTx) Update(ctx context.Context, f *domain.Flight) error {
	tag, err := t.tx.Exec(ctx, `
UPDATE flights SET route_id = $2, airplane_id = $3, departure_time = $4, arrival_time = $5
WHERE id = $1`, f.ID, f.RouteID, f.AirplaneID, f.DepartureTime, f.ArrivalTime)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM flight_crews WHERE flight_id = $1`, f.ID); err != nil {
		return translate(err)
	}
	return t.setCrew(ctx, f.ID, f.CrewIDs)
}

func (t *pgFlightTx) setCrew(ctx context.Context, flightID int64, crewIDs []int64) error {
	if len(crewIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `
INSERT INTO flight_crews (flight_id, crew_id)
SELECT $1, unnest($2::bigint[])
ON CONFLICT DO NOTHING`, flightID, crewIDs)
	return translate(err)
}

func (t *pgFlightTx) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM flights WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var (
	_ FlightRepository = (*PGFlightRepository)(nil)
	_ FlightTx         = (*pgFlightTx)(nil)
)
