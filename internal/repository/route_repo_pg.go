package repository

import (
	"context"
	"fmt"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RouteRepository interface {
	Create(ctx context.Context, sourceID, destinationID int64, distance int) (*domain.Route, error)
	List(ctx context.Context) ([]domain.Route, error)
	CreateAirport(ctx context.Context, a *domain.Airport) error
	ListAirports(ctx context.Context) ([]domain.Airport, error)
}

type PGRouteRepository struct {
	db *pgxpool.Pool
}

func NewRouteRepository(db *pgxpool.Pool) RouteRepository {
	return &PGRouteRepository{db: db}
}

const routeSelect = `
SELECT r.id, r.distance, src.id, src.name, dst.id, dst.name
FROM routes r
JOIN airports src ON src.id = r.source_id
JOIN airports dst ON dst.id = r.destination_id`

// Create checks for an existing pair before inserting; the unique constraint
// settles the race between two concurrent creations.
func (r *PGRouteRepository) Create(ctx context.Context, sourceID, destinationID int64, distance int) (*domain.Route, error) {
	var route *domain.Route
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `
SELECT EXISTS (SELECT 1 FROM routes WHERE source_id = $1 AND destination_id = $2)`,
			sourceID, destinationID).Scan(&exists); err != nil {
			return translate(err)
		}
		if exists {
			return domain.DuplicateRouteError()
		}

		var id int64
		if err := tx.QueryRow(ctx, `
INSERT INTO routes (source_id, destination_id, distance)
VALUES ($1, $2, $3)
RETURNING id`, sourceID, destinationID, distance).Scan(&id); err != nil {
			return translate(err)
		}

		var rt domain.Route
		if err := tx.QueryRow(ctx, routeSelect+` WHERE r.id = $1`, id).
			Scan(&rt.ID, &rt.Distance, &rt.Source.ID, &rt.Source.Name, &rt.Destination.ID, &rt.Destination.Name); err != nil {
			return translate(err)
		}
		route = &rt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

func (r *PGRouteRepository) List(ctx context.Context) ([]domain.Route, error) {
	rows, err := r.db.Query(ctx, routeSelect+` ORDER BY r.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	defer rows.Close()

	routes := make([]domain.Route, 0)
	for rows.Next() {
		var rt domain.Route
		if err := rows.Scan(&rt.ID, &rt.Distance, &rt.Source.ID, &rt.Source.Name, &rt.Destination.ID, &rt.Destination.Name); err != nil {
			return nil, err
		}
		routes = append(routes, rt)
	}
	return routes, rows.Err()
}

func (r *PGRouteRepository) CreateAirport(ctx context.Context, a *domain.Airport) error {
	err := r.db.QueryRow(ctx, `INSERT INTO airports (name) VALUES ($1) RETURNING id`, a.Name).Scan(&a.ID)
	return translate(err)
}

func (r *PGRouteRepository) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name FROM airports ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list airports: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Airport, error) {
		var a domain.Airport
		err := row.Scan(&a.ID, &a.Name)
		return a, err
	})
}

var _ RouteRepository = (*PGRouteRepository)(nil)
