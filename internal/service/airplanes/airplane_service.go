package airplanes

import (
	"context"
	"strings"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

type AirplaneUseCase interface {
	Create(ctx context.Context, a domain.Airplane) (*domain.Airplane, error)
	List(ctx context.Context) ([]domain.Airplane, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*domain.Airplane, error)
	CreateCrew(ctx context.Context, firstName, lastName string) (*domain.Crew, error)
	ListCrews(ctx context.Context) ([]domain.Crew, error)
}

type UpdateInput struct {
	Name           *string
	Rows           *int
	SeatsInRow     *int
	AirplaneTypeID *int64
}

type AirplaneService struct {
	repo repository.AirplaneRepository
}

func NewAirplaneService(repo repository.AirplaneRepository) *AirplaneService {
	return &AirplaneService{repo: repo}
}

func (s *AirplaneService) Create(ctx context.Context, a domain.Airplane) (*domain.Airplane, error) {
	if strings.TrimSpace(a.Name) == "" {
		return nil, domain.NewValidationError(domain.CodeRequired, "name", "This field may not be blank.")
	}
	if err := domain.ValidateSeatGrid(a.Rows, a.SeatsInRow); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AirplaneService) List(ctx context.Context) ([]domain.Airplane, error) {
	return s.repo.List(ctx)
}

// Update changes an airplane. The seat grid may grow freely but may not
// shrink past a seat that has been sold on any of its flights.
func (s *AirplaneService) Update(ctx context.Context, id int64, in UpdateInput) (*domain.Airplane, error) {
	return s.repo.Update(ctx, id, func(cur domain.Airplane, maxRow, maxSeat int) (domain.Airplane, error) {
		next := cur
		if in.Name != nil {
			next.Name = *in.Name
		}
		if in.Rows != nil {
			next.Rows = *in.Rows
		}
		if in.SeatsInRow != nil {
			next.SeatsInRow = *in.SeatsInRow
		}
		if in.AirplaneTypeID != nil {
			next.AirplaneTypeID = *in.AirplaneTypeID
		}

		if err := domain.ValidateSeatGrid(next.Rows, next.SeatsInRow); err != nil {
			return cur, err
		}
		if err := domain.ValidateGridKeepsSeats(next.Rows, next.SeatsInRow, maxRow, maxSeat); err != nil {
			return cur, err
		}
		return next, nil
	})
}

func (s *AirplaneService) CreateCrew(ctx context.Context, firstName, lastName string) (*domain.Crew, error) {
	c := &domain.Crew{FirstName: strings.TrimSpace(firstName), LastName: strings.TrimSpace(lastName)}
	if c.FirstName == "" {
		return nil, domain.NewValidationError(domain.CodeRequired, "first_name", "This field may not be blank.")
	}
	if c.LastName == "" {
		return nil, domain.NewValidationError(domain.CodeRequired, "last_name", "This field may not be blank.")
	}
	if err := s.repo.CreateCrew(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *AirplaneService) ListCrews(ctx context.Context) ([]domain.Crew, error) {
	return s.repo.ListCrews(ctx)
}

var _ AirplaneUseCase = (*AirplaneService)(nil)
