package flights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

// Stage names the step a flight mutation is in. Rejected is reachable only
// from Validating.
type Stage string

const (
	StageValidating   Stage = "validating"
	StagePersisting   Stage = "persisting"
	StageDiffing      Stage = "diffing"
	StageInvalidating Stage = "invalidating"
	StageNotifying    Stage = "notifying"
	StageDone         Stage = "done"
	StageRejected     Stage = "rejected"
)

// persistAttempts is the first try plus one retry after a lost race.
const persistAttempts = 2

type CreateInput struct {
	RouteID       int64
	AirplaneID    int64
	DepartureTime time.Time
	ArrivalTime   time.Time
	CrewIDs       []int64
}

// UpdateInput carries the fields to change; nil fields keep their value.
type UpdateInput struct {
	RouteID       *int64
	AirplaneID    *int64
	DepartureTime *time.Time
	ArrivalTime   *time.Time
	CrewIDs       *[]int64
}

func (in UpdateInput) apply(f domain.Flight) domain.Flight {
	if in.RouteID != nil {
		f.RouteID = *in.RouteID
	}
	if in.AirplaneID != nil {
		f.AirplaneID = *in.AirplaneID
	}
	if in.DepartureTime != nil {
		f.DepartureTime = *in.DepartureTime
	}
	if in.ArrivalTime != nil {
		f.ArrivalTime = *in.ArrivalTime
	}
	if in.CrewIDs != nil {
		f.CrewIDs = append([]int64(nil), (*in.CrewIDs)...)
	} else {
		f.CrewIDs = append([]int64(nil), f.CrewIDs...)
	}
	return f
}

// images is the pre- and post-image of one committed write.
type images struct {
	before *domain.Flight
	after  *domain.Flight
	route  string
}

func (s *FlightService) Create(ctx context.Context, in CreateInput) (*domain.Flight, error) {
	res, err := s.persist(ctx, "create", func(ctx context.Context, tx repository.FlightTx) (images, error) {
		f := &domain.Flight{
			RouteID:       in.RouteID,
			AirplaneID:    in.AirplaneID,
			DepartureTime: in.DepartureTime,
			ArrivalTime:   in.ArrivalTime,
			CrewIDs:       append([]int64(nil), in.CrewIDs...),
		}
		route, err := s.validate(ctx, tx, f, true)
		if err != nil {
			return images{}, err
		}
		if err := tx.Insert(ctx, f); err != nil {
			return images{}, err
		}
		return images{after: f, route: route.Name()}, nil
	})
	if err != nil {
		return nil, err
	}

	s.afterCommit(ctx, res.after.ID, nil)
	return res.after, nil
}

// Update reads the pre-image under lock, validates the merged flight and
// writes it in the same transaction. Past departure is only enforced when the
// departure time moves.
func (s *FlightService) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Flight, error) {
	res, err := s.persist(ctx, "update", func(ctx context.Context, tx repository.FlightTx) (images, error) {
		before, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return images{}, err
		}
		after := in.apply(*before)

		requireFuture := !after.DepartureTime.Equal(before.DepartureTime)
		route, err := s.validate(ctx, tx, &after, requireFuture)
		if err != nil {
			return images{}, err
		}
		if err := tx.Update(ctx, &after); err != nil {
			return images{}, err
		}
		return images{before: before, after: &after, route: route.Name()}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logStage(ctx, StageDiffing, id)
	s.afterCommit(ctx, id, diffDeparture(res))
	return res.after, nil
}

func (s *FlightService) Delete(ctx context.Context, id int64) error {
	_, err := s.persist(ctx, "delete", func(ctx context.Context, tx repository.FlightTx) (images, error) {
		before, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return images{}, err
		}
		if err := tx.Delete(ctx, id); err != nil {
			return images{}, err
		}
		return images{before: before}, nil
	})
	if err != nil {
		return err
	}

	s.afterCommit(ctx, id, nil)
	return nil
}

// validate runs the Validating stage against the locked airplane and returns
// the flight's route.
func (s *FlightService) validate(ctx context.Context, tx repository.FlightTx, f *domain.Flight, requireFuture bool) (*domain.Route, error) {
	s.logStage(ctx, StageValidating, f.ID)

	route, err := tx.GetRoute(ctx, f.RouteID)
	if err != nil {
		return nil, missingReference(err, "route", f.RouteID)
	}
	if _, err := tx.LockAirplane(ctx, f.AirplaneID); err != nil {
		return nil, missingReference(err, "airplane", f.AirplaneID)
	}

	if err := ValidateNoOverlap(ctx, tx, f.AirplaneID, f.Window(), f.ID, s.now(), requireFuture); err != nil {
		return nil, err
	}
	return route, nil
}

func missingReference(err error, field string, id int64) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewValidationError(domain.CodeUnknownReference, field,
			fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", id))
	}
	return err
}

// persist runs Validating and Persisting in one transaction. A write that
// loses a race to a concurrent transaction is retried once and then reported
// as a schedule conflict.
func (s *FlightService) persist(ctx context.Context, op string, fn func(context.Context, repository.FlightTx) (images, error)) (images, error) {
	var (
		res images
		err error
	)
	for attempt := 1; attempt <= persistAttempts; attempt++ {
		err = s.repo.InTx(ctx, func(tx repository.FlightTx) error {
			r, err := fn(ctx, tx)
			if err != nil {
				return err
			}
			s.logStage(ctx, StagePersisting, r.flightID())
			res = r
			return nil
		})
		if !errors.Is(err, repository.ErrWriteConflict) {
			break
		}
		s.logger.InfoContext(ctx, "flight write lost a race", slog.String("op", op), slog.Int("attempt", attempt))
	}

	if err != nil {
		s.logger.DebugContext(ctx, "flight mutation rejected", slog.String("op", op), slog.String("stage", string(StageRejected)), slog.Any("error", err))
		if errors.Is(err, repository.ErrWriteConflict) {
			return images{}, domain.ScheduleConflictError()
		}
		return images{}, err
	}
	return res, nil
}

func (r images) flightID() int64 {
	switch {
	case r.after != nil:
		return r.after.ID
	case r.before != nil:
		return r.before.ID
	}
	return 0
}

// diffDeparture reports a departure change between the two images, or nil.
func diffDeparture(res images) *domain.DepartureChange {
	if res.before == nil || res.after == nil {
		return nil
	}
	if res.before.DepartureTime.Equal(res.after.DepartureTime) {
		return nil
	}
	return &domain.DepartureChange{
		FlightID:     res.after.ID,
		Route:        res.route,
		OldDeparture: res.before.DepartureTime,
		NewDeparture: res.after.DepartureTime,
	}
}

// afterCommit runs Invalidating and Notifying. The write is already
// committed, so failures are logged and the caller's cancellation is ignored.
func (s *FlightService) afterCommit(ctx context.Context, flightID int64, change *domain.DepartureChange) {
	ctx = context.WithoutCancel(ctx)

	s.logStage(ctx, StageInvalidating, flightID)
	if s.cache != nil {
		ictx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout)
		if err := s.cache.InvalidateAll(ictx); err != nil {
			s.logger.WarnContext(ctx, "listing cache invalidation failed", slog.Int64("flight_id", flightID), slog.Any("error", err))
		}
		cancel()
	}

	if change != nil && s.notifier != nil {
		s.logStage(ctx, StageNotifying, flightID)
		nctx, cancel := context.WithTimeout(ctx, s.sideEffectTimeout)
		if err := s.notifier.NotifyDepartureChanged(nctx, *change); err != nil {
			s.logger.ErrorContext(ctx, "departure change notification failed", slog.Int64("flight_id", flightID), slog.Any("error", err))
		}
		cancel()
	}

	s.logStage(ctx, StageDone, flightID)
}

func (s *FlightService) logStage(ctx context.Context, stage Stage, flightID int64) {
	s.logger.DebugContext(ctx, "flight mutation", slog.String("stage", string(stage)), slog.Int64("flight_id", flightID))
}
