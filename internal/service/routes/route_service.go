package routes

import (
	"context"
	"strings"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

type RouteUseCase interface {
	Create(ctx context.Context, sourceID, destinationID int64, distance int) (*domain.Route, error)
	List(ctx context.Context) ([]domain.Route, error)
	CreateAirport(ctx context.Context, name string) (*domain.Airport, error)
	ListAirports(ctx context.Context) ([]domain.Airport, error)
}

type RouteService struct {
	repo repository.RouteRepository
}

func NewRouteService(repo repository.RouteRepository) *RouteService {
	return &RouteService{repo: repo}
}

func (s *RouteService) Create(ctx context.Context, sourceID, destinationID int64, distance int) (*domain.Route, error) {
	if err := domain.ValidateRoute(sourceID, destinationID, distance); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, sourceID, destinationID, distance)
}

func (s *RouteService) List(ctx context.Context) ([]domain.Route, error) {
	return s.repo.List(ctx)
}

func (s *RouteService) CreateAirport(ctx context.Context, name string) (*domain.Airport, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError(domain.CodeRequired, "name", "This field may not be blank.")
	}
	a := &domain.Airport{Name: name}
	if err := s.repo.CreateAirport(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *RouteService) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	return s.repo.ListAirports(ctx)
}

var _ RouteUseCase = (*RouteService)(nil)
