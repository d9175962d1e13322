package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	constraintTicketSeat     = "tickets_flight_seat_key"
	constraintRoutePair      = "routes_source_destination_key"
	constraintRouteEndpoints = "routes_endpoints_differ"
	constraintWindowOrder    = "flights_window_order"
)

// ErrWriteConflict marks a write that lost a race against a concurrent
// transaction. The statement may succeed if the whole transaction is retried.
var ErrWriteConflict = errors.New("concurrent write conflict")

type txBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

func inTx(ctx context.Context, db txBeginner, fn func(pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", translate(err))
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit tx: %w", translate(err))
	}
	return nil
}

// translate maps driver errors onto the domain vocabulary.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23P01", "40001", "40P01":
		return fmt.Errorf("%w: %s", ErrWriteConflict, pgErr.Message)
	case "23505":
		switch pgErr.ConstraintName {
		case constraintTicketSeat:
			return domain.SeatTakenError()
		case constraintRoutePair:
			return domain.DuplicateRouteError()
		}
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
	case "23503":
		field := referenceField(pgErr.ConstraintName)
		return domain.NewValidationError(domain.CodeUnknownReference, field, "Object does not exist.")
	case "23514":
		switch pgErr.ConstraintName {
		case constraintRouteEndpoints:
			return domain.NewValidationError(domain.CodeSameEndpoints, "source", "Source and destination must be different")
		case constraintWindowOrder:
			return domain.NewValidationError(domain.CodeInvalidWindow, "departure_time", "Departure time is greater than arrival time")
		}
	}
	return err
}

// referenceField turns a default foreign key name such as
// "flight_crews_crew_id_fkey" into the request field "crew".
func referenceField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_id_fkey")
	if i := strings.LastIndex(name, "_"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	if name == "" {
		return "__all__"
	}
	return name
}
