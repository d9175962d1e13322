package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/airline/internal/domain"
)

type SeatCounter interface {
	AvailableSeats(ctx context.Context, flightID int64) (domain.Availability, error)
}

// SeatReader is the part of an order transaction the engine reads from.
type SeatReader interface {
	SeatMap(ctx context.Context, flightID int64) (*domain.Airplane, error)
	SeatTaken(ctx context.Context, flightID int64, row, seat int) (bool, error)
}

// Engine answers seat availability questions for a flight.
type Engine struct {
	counter SeatCounter
}

func NewEngine(counter SeatCounter) *Engine {
	return &Engine{counter: counter}
}

func (e *Engine) AvailableSeats(ctx context.Context, flightID int64) (domain.Availability, error) {
	return e.counter.AvailableSeats(ctx, flightID)
}

// ValidateSeat checks a seat against the airplane's grid and the flight's
// existing tickets. It must run in the transaction that inserts the ticket.
func (e *Engine) ValidateSeat(ctx context.Context, tx SeatReader, flightID int64, row, seat int) error {
	airplane, err := tx.SeatMap(ctx, flightID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewValidationError(domain.CodeUnknownReference, "flight",
				fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", flightID))
		}
		return err
	}

	if err := airplane.ValidateSeat(row, seat); err != nil {
		return err
	}

	taken, err := tx.SeatTaken(ctx, flightID, row, seat)
	if err != nil {
		return err
	}
	if taken {
		return domain.SeatTakenError()
	}
	return nil
}
