package routes

import (
	"context"
	"testing"

	"github.com/Domenick1991/airline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRouteRepository struct {
	mock.Mock
}

func (m *MockRouteRepository) Create(ctx context.Context, sourceID, destinationID int64, distance int) (*domain.Route, error) {
	args := m.Called(ctx, sourceID, destinationID, distance)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Route), args.Error(1)
}

func (m *MockRouteRepository) List(ctx context.Context) ([]domain.Route, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Route), args.Error(1)
}

func (m *MockRouteRepository) CreateAirport(ctx context.Context, a *domain.Airport) error {
	args := m.Called(ctx, a)
	a.ID = 11
	return args.Error(0)
}

func (m *MockRouteRepository) ListAirports(ctx context.Context) ([]domain.Airport, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Airport), args.Error(1)
}

func TestRouteService_Create_SameEndpoints(t *testing.T) {
	repo := &MockRouteRepository{}
	svc := NewRouteService(repo)

	_, err := svc.Create(context.Background(), 4, 4, 500)

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.CodeSameEndpoints, ve.Code)
	assert.Equal(t, "Source and destination must be different", ve.Fields["source"])
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRouteService_Create_Distance(t *testing.T) {
	repo := &MockRouteRepository{}
	svc := NewRouteService(repo)

	_, err := svc.Create(context.Background(), 1, 2, 9)
	assert.True(t, domain.HasCode(err, domain.CodeInvalidDistance))
}

func TestRouteService_Create(t *testing.T) {
	repo := &MockRouteRepository{}
	svc := NewRouteService(repo)
	ctx := context.Background()

	route := &domain.Route{ID: 3, Source: domain.Airport{ID: 1, Name: "A"}, Destination: domain.Airport{ID: 2, Name: "B"}, Distance: 10}
	repo.On("Create", ctx, int64(1), int64(2), 10).Return(route, nil).Once()
	repo.On("Create", ctx, int64(1), int64(2), 10).Return(nil, domain.DuplicateRouteError()).Once()

	got, err := svc.Create(ctx, 1, 2, 10)
	require.NoError(t, err)
	assert.Equal(t, route, got)

	_, err = svc.Create(ctx, 1, 2, 10)
	assert.True(t, domain.HasCode(err, domain.CodeDuplicateRoute))
	repo.AssertExpectations(t)
}

func TestRouteService_CreateAirport(t *testing.T) {
	repo := &MockRouteRepository{}
	svc := NewRouteService(repo)
	ctx := context.Background()

	_, err := svc.CreateAirport(ctx, "   ")
	assert.True(t, domain.HasCode(err, domain.CodeRequired))

	repo.On("CreateAirport", ctx, &domain.Airport{Name: "Boryspil"}).Return(nil).Once()
	a, err := svc.CreateAirport(ctx, " Boryspil ")
	require.NoError(t, err)
	assert.Equal(t, int64(11), a.ID)
	repo.AssertExpectations(t)
}
