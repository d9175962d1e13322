package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewFlightRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewFlightRepository(pool)
	assert.NotNil(t, repo)
}

func TestFlightConditions(t *testing.T) {
	route := int64(7)
	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2029, 12, 1, 0, 0, 0, 0, time.UTC)

	where, args := flightConditions(domain.FlightFilter{
		RouteID:       &route,
		DepartureFrom: &from,
		Search:        "50%_off",
		FutureOnly:    true,
		Now:           now,
	})

	assert.Equal(t, "\nWHERE f.departure_time > $1 AND f.route_id = $2 AND f.departure_time >= $3"+
		" AND (a.name ILIKE $4 OR (src.name || ' - ' || dst.name) ILIKE $4)", where)
	assert.Equal(t, []any{now, route, from, `%50\%\_off%`}, args)
}

func TestFlightConditions_Empty(t *testing.T) {
	where, args := flightConditions(domain.FlightFilter{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestFlightOrdering(t *testing.T) {
	assert.Equal(t, "f.departure_time ASC, f.id ASC", flightOrdering(""))
	assert.Equal(t, "f.departure_time ASC, f.id ASC", flightOrdering("price; DROP TABLE flights"))
	assert.Equal(t, "a.name DESC, dst.name ASC, f.id ASC", flightOrdering("-airplane__name, route__destination__name"))
	assert.False(t, strings.Contains(flightOrdering("-unknown"), "unknown"))
}
