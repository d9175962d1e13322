package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GridChange receives the locked airplane and the furthest sold row and seat
// across all of its flights, and returns the airplane to store.
type GridChange func(current domain.Airplane, maxSoldRow, maxSoldSeat int) (domain.Airplane, error)

type AirplaneRepository interface {
	Create(ctx context.Context, a *domain.Airplane) error
	Get(ctx context.Context, id int64) (*domain.Airplane, error)
	List(ctx context.Context) ([]domain.Airplane, error)
	Update(ctx context.Context, id int64, change GridChange) (*domain.Airplane, error)
	CreateCrew(ctx context.Context, c *domain.Crew) error
	ListCrews(ctx context.Context) ([]domain.Crew, error)
}

type PGAirplaneRepository struct {
	db *pgxpool.Pool
}

func NewAirplaneRepository(db *pgxpool.Pool) AirplaneRepository {
	return &PGAirplaneRepository{db: db}
}

func (r *PGAirplaneRepository) Create(ctx context.Context, a *domain.Airplane) error {
	err := r.db.QueryRow(ctx, `
INSERT INTO airplanes (name, rows, seats_in_row, airplane_type_id)
VALUES ($1, $2, $3, NULLIF($4, 0))
RETURNING id`, a.Name, a.Rows, a.SeatsInRow, a.AirplaneTypeID).Scan(&a.ID)
	return translate(err)
}

func (r *PGAirplaneRepository) Get(ctx context.Context, id int64) (*domain.Airplane, error) {
	var a domain.Airplane
	err := r.db.QueryRow(ctx, `
SELECT id, name, rows, seats_in_row, COALESCE(airplane_type_id, 0)
FROM airplanes WHERE id = $1`, id).Scan(&a.ID, &a.Name, &a.Rows, &a.SeatsInRow, &a.AirplaneTypeID)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *PGAirplaneRepository) List(ctx context.Context) ([]domain.Airplane, error) {
	rows, err := r.db.Query(ctx, `
SELECT id, name, rows, seats_in_row, COALESCE(airplane_type_id, 0)
FROM airplanes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list airplanes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Airplane, error) {
		var a domain.Airplane
		err := row.Scan(&a.ID, &a.Name, &a.Rows, &a.SeatsInRow, &a.AirplaneTypeID)
		return a, err
	})
}

// Update locks the airplane FOR UPDATE, which waits for in-flight orders
// holding KEY SHARE on it, so the sold-seat bounds cannot move under change.
func (r *PGAirplaneRepository) Update(ctx context.Context, id int64, change GridChange) (*domain.Airplane, error) {
	var updated domain.Airplane
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var cur domain.Airplane
		if err := tx.QueryRow(ctx, `
SELECT id, name, rows, seats_in_row, COALESCE(airplane_type_id, 0)
FROM airplanes WHERE id = $1
FOR UPDATE`, id).Scan(&cur.ID, &cur.Name, &cur.Rows, &cur.SeatsInRow, &cur.AirplaneTypeID); err != nil {
			return translate(err)
		}

		var maxRow, maxSeat int
		if err := tx.QueryRow(ctx, `
SELECT COALESCE(MAX(t.row_no), 0), COALESCE(MAX(t.seat_no), 0)
FROM tickets t
JOIN flights f ON f.id = t.flight_id
WHERE f.airplane_id = $1`, id).Scan(&maxRow, &maxSeat); err != nil {
			return translate(err)
		}

		next, err := change(cur, maxRow, maxSeat)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
UPDATE airplanes SET name = $2, rows = $3, seats_in_row = $4, airplane_type_id = NULLIF($5, 0)
WHERE id = $1`, id, next.Name, next.Rows, next.SeatsInRow, next.AirplaneTypeID); err != nil {
			return translate(err)
		}
		next.ID = id
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *PGAirplaneRepository) CreateCrew(ctx context.Context, c *domain.Crew) error {
	err := r.db.QueryRow(ctx, `INSERT INTO crews (first_name, last_name) VALUES ($1, $2) RETURNING id`,
		c.FirstName, c.LastName).Scan(&c.ID)
	return translate(err)
}

func (r *PGAirplaneRepository) ListCrews(ctx context.Context) ([]domain.Crew, error) {
	rows, err := r.db.Query(ctx, `SELECT id, first_name, last_name FROM crews ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list crews: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Crew, error) {
		var c domain.Crew
		err := row.Scan(&c.ID, &c.FirstName, &c.LastName)
		return c, err
	})
}

var _ AirplaneRepository = (*PGAirplaneRepository)(nil)
