package flights

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/airline/internal/cache"
	"github.com/Domenick1991/airline/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockListingCache struct {
	mock.Mock
}

func (m *MockListingCache) Key(class cache.AuthClass, fingerprint string) string {
	args := m.Called(class, fingerprint)
	return args.String(0)
}

func (m *MockListingCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	m.Called(ctx, key, ttl)
	return compute(ctx)
}

func (m *MockListingCache) InvalidateAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyDepartureChanged(ctx context.Context, change domain.DepartureChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

// 2030-01-01 00:00 UTC; flights in these tests depart the next day.
var testNow = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func at(hour int) time.Time {
	return time.Date(2030, 1, 2, hour, 0, 0, 0, time.UTC)
}

func newTestService(repo *fakeFlightRepo, c ListingCache, n Notifier) *FlightService {
	opts := []Option{WithClock(func() time.Time { return testNow })}
	if n != nil {
		opts = append(opts, WithNotifier(n))
	}
	return NewFlightService(repo, c, time.Minute, opts...)
}

func createInput(airplane int64, from, to time.Time) CreateInput {
	return CreateInput{RouteID: 1, AirplaneID: airplane, DepartureTime: from, ArrivalTime: to}
}

func TestFlightService_Create_TemporalRules(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	svc := newTestService(repo, mockCache, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, createInput(1, testNow.Add(-time.Hour), testNow.Add(time.Hour)))
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.CodePastDeparture, ve.Code)
	assert.Contains(t, ve.Fields, "departure_time")

	_, err = svc.Create(ctx, createInput(1, testNow.Add(time.Hour), testNow.Add(30*time.Minute)))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.CodeInvalidWindow, ve.Code)
	assert.Equal(t, "Departure time is greater than arrival time", ve.Fields["departure_time"])

	assert.Equal(t, 0, repo.count())
	mockCache.AssertNotCalled(t, "InvalidateAll", mock.Anything)
}

func TestFlightService_Create_Overlap(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	svc := newTestService(repo, mockCache, nil)
	ctx := context.Background()

	mockCache.On("InvalidateAll", mock.Anything).Return(nil).Twice()

	a, err := svc.Create(ctx, createInput(1, at(10), at(12)))
	require.NoError(t, err)
	assert.NotZero(t, a.ID)

	_, err = svc.Create(ctx, createInput(1, at(11), at(13)))
	assert.True(t, domain.HasCode(err, domain.CodeScheduleConflict))

	_, err = svc.Create(ctx, createInput(1, at(9), at(14)))
	assert.True(t, domain.HasCode(err, domain.CodeScheduleConflict))

	c, err := svc.Create(ctx, createInput(1, at(12), at(13)))
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, c.ID)

	// same window on another airplane
	other := createInput(2, at(10), at(12))
	mockCache.On("InvalidateAll", mock.Anything).Return(nil).Once()
	_, err = svc.Create(ctx, other)
	require.NoError(t, err)

	assert.Equal(t, 3, repo.count())
	mockCache.AssertExpectations(t)
}

func TestFlightService_Create_UnknownReferences(t *testing.T) {
	repo := newFakeFlightRepo()
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	in := createInput(1, at(10), at(12))
	in.RouteID = 99
	_, err := svc.Create(ctx, in)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, domain.CodeUnknownReference, ve.Code)
	assert.Contains(t, ve.Fields, "route")

	_, err = svc.Create(ctx, createInput(42, at(10), at(12)))
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "airplane")
}

func TestFlightService_Update_DepartureChangeNotifies(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	notifier := &MockNotifier{}
	svc := newTestService(repo, mockCache, notifier)
	ctx := context.Background()

	a := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(10), ArrivalTime: at(12)})

	mockCache.On("InvalidateAll", mock.Anything).Return(nil).Twice()
	notifier.On("NotifyDepartureChanged", mock.Anything, domain.DepartureChange{
		FlightID:     a.ID,
		Route:        "Kyiv - Lviv",
		OldDeparture: at(10),
		NewDeparture: at(11),
	}).Return(nil).Once()

	newDep := at(11)
	updated, err := svc.Update(ctx, a.ID, UpdateInput{DepartureTime: &newDep})
	require.NoError(t, err)
	assert.Equal(t, at(11), updated.DepartureTime)
	assert.Equal(t, at(12), updated.ArrivalTime)

	otherPlane := int64(2)
	_, err = svc.Update(ctx, a.ID, UpdateInput{AirplaneID: &otherPlane})
	require.NoError(t, err)

	stored, _ := repo.flight(a.ID)
	assert.Equal(t, int64(2), stored.AirplaneID)
	notifier.AssertNumberOfCalls(t, "NotifyDepartureChanged", 1)
	notifier.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

func TestFlightService_Update_ExcludesItself(t *testing.T) {
	repo := newFakeFlightRepo()
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	a := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(10), ArrivalTime: at(12)})
	repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(13), ArrivalTime: at(15)})

	arr := at(13)
	_, err := svc.Update(ctx, a.ID, UpdateInput{ArrivalTime: &arr})
	require.NoError(t, err)

	arr = at(14)
	_, err = svc.Update(ctx, a.ID, UpdateInput{ArrivalTime: &arr})
	assert.True(t, domain.HasCode(err, domain.CodeScheduleConflict))

	stored, _ := repo.flight(a.ID)
	assert.Equal(t, at(13), stored.ArrivalTime)
}

func TestFlightService_Update_PastFlight(t *testing.T) {
	repo := newFakeFlightRepo()
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	past := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: testNow.Add(-3 * time.Hour), ArrivalTime: testNow.Add(-time.Hour)})

	// crew change on a departed flight keeps its departure time
	crew := []int64{}
	_, err := svc.Update(ctx, past.ID, UpdateInput{CrewIDs: &crew})
	require.NoError(t, err)

	dep := testNow.Add(-2 * time.Hour)
	_, err = svc.Update(ctx, past.ID, UpdateInput{DepartureTime: &dep})
	assert.True(t, domain.HasCode(err, domain.CodePastDeparture))
}

func TestFlightService_Update_NotFound(t *testing.T) {
	mockCache := &MockListingCache{}
	svc := newTestService(newFakeFlightRepo(), mockCache, nil)

	dep := at(10)
	_, err := svc.Update(context.Background(), 404, UpdateInput{DepartureTime: &dep})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	mockCache.AssertNotCalled(t, "InvalidateAll", mock.Anything)
}

func TestFlightService_Delete(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	notifier := &MockNotifier{}
	svc := newTestService(repo, mockCache, notifier)
	ctx := context.Background()

	a := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(10), ArrivalTime: at(12)})
	mockCache.On("InvalidateAll", mock.Anything).Return(nil).Once()

	require.NoError(t, svc.Delete(ctx, a.ID))
	assert.Equal(t, 0, repo.count())

	assert.ErrorIs(t, svc.Delete(ctx, a.ID), domain.ErrNotFound)

	mockCache.AssertExpectations(t)
	notifier.AssertNotCalled(t, "NotifyDepartureChanged", mock.Anything, mock.Anything)
}

func TestFlightService_RetriesLostRaceOnce(t *testing.T) {
	repo := newFakeFlightRepo()
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	repo.conflicts = 1
	_, err := svc.Create(ctx, createInput(1, at(10), at(12)))
	require.NoError(t, err)

	repo.conflicts = 2
	_, err = svc.Create(ctx, createInput(1, at(14), at(16)))
	assert.True(t, domain.HasCode(err, domain.CodeScheduleConflict))
	assert.Equal(t, 1, repo.count())
}

func TestFlightService_SideEffectFailuresAreSwallowed(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	notifier := &MockNotifier{}
	svc := newTestService(repo, mockCache, notifier)

	a := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(10), ArrivalTime: at(12)})
	mockCache.On("InvalidateAll", mock.Anything).Return(errors.New("redis down")).Once()
	notifier.On("NotifyDepartureChanged", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	dep := at(9)
	updated, err := svc.Update(context.Background(), a.ID, UpdateInput{DepartureTime: &dep})
	require.NoError(t, err)
	assert.Equal(t, at(9), updated.DepartureTime)

	mockCache.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestFlightService_SideEffectsIgnoreCallerCancellation(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	svc := newTestService(repo, mockCache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	mockCache.On("InvalidateAll", mock.MatchedBy(func(c context.Context) bool {
		cancel()
		return c.Err() == nil
	})).Return(nil).Once()

	_, err := svc.Create(ctx, createInput(1, at(10), at(12)))
	require.NoError(t, err)
	mockCache.AssertExpectations(t)
}

func TestFlightService_CancelledBeforeCommit(t *testing.T) {
	repo := newFakeFlightRepo()
	mockCache := &MockListingCache{}
	svc := newTestService(repo, mockCache, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx, createInput(1, at(10), at(12)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.count())
	mockCache.AssertNotCalled(t, "InvalidateAll", mock.Anything)
}

func TestFlightService_ConcurrentCreatesOnOneAirplane(t *testing.T) {
	repo := newFakeFlightRepo()
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	const writers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			start := at(10).Add(time.Duration(i) * 10 * time.Minute)
			_, err := svc.Create(ctx, createInput(1, start, start.Add(3*time.Hour)))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case domain.HasCode(err, domain.CodeScheduleConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, writers-1, conflicts)

	flights, err := repo.List(ctx, domain.FlightFilter{})
	require.NoError(t, err)
	for i := range flights {
		for j := i + 1; j < len(flights); j++ {
			wi := domain.Window{Departure: flights[i].DepartureTime, Arrival: flights[i].ArrivalTime}
			wj := domain.Window{Departure: flights[j].DepartureTime, Arrival: flights[j].ArrivalTime}
			assert.False(t, wi.Overlaps(wj))
		}
	}
}

func TestFlightService_ListIsCachedPerAuthClass(t *testing.T) {
	repo := newFakeFlightRepo()
	listing := cache.NewListingCache(cache.NewMemoryStore(), "flights", nil)
	svc := newTestService(repo, listing, nil)
	ctx := context.Background()

	repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(10), ArrivalTime: at(12)})
	repo.seed(domain.Flight{RouteID: 1, AirplaneID: 2, DepartureTime: testNow.Add(-2 * time.Hour), ArrivalTime: testNow.Add(-time.Hour)})

	user, err := svc.List(ctx, domain.FlightFilter{}, false)
	require.NoError(t, err)
	assert.Len(t, user, 1)
	assert.Equal(t, 40, user[0].TicketsAvailable)

	staff, err := svc.List(ctx, domain.FlightFilter{}, true)
	require.NoError(t, err)
	assert.Len(t, staff, 2)

	_, err = svc.List(ctx, domain.FlightFilter{}, false)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)

	// a committed write evicts the namespace
	_, err = svc.Create(ctx, createInput(2, at(10), at(12)))
	require.NoError(t, err)

	user, err = svc.List(ctx, domain.FlightFilter{}, false)
	require.NoError(t, err)
	assert.Len(t, user, 2)
	assert.Equal(t, 3, repo.listCalls)
}

func TestFlightService_Get(t *testing.T) {
	repo := newFakeFlightRepo()
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	future := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 1, DepartureTime: at(10), ArrivalTime: at(12)})
	past := repo.seed(domain.Flight{RouteID: 1, AirplaneID: 2, DepartureTime: testNow.Add(-2 * time.Hour), ArrivalTime: testNow.Add(-time.Hour)})

	d, err := svc.Get(ctx, future.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Kyiv - Lviv", d.Route.Name())

	_, err = svc.Get(ctx, past.ID, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, past.ID, true)
	assert.NoError(t, err)
}

type MockOverlapFinder struct {
	mock.Mock
}

func (m *MockOverlapFinder) FindOverlapping(ctx context.Context, airplaneID int64, w domain.Window, excludeID int64) ([]int64, error) {
	args := m.Called(ctx, airplaneID, w, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func TestValidateNoOverlap(t *testing.T) {
	ctx := context.Background()
	w := domain.Window{Departure: at(10), Arrival: at(12)}

	finder := &MockOverlapFinder{}
	finder.On("FindOverlapping", ctx, int64(1), w, int64(5)).Return([]int64{}, nil).Once()
	assert.NoError(t, ValidateNoOverlap(ctx, finder, 1, w, 5, testNow, true))

	finder.On("FindOverlapping", ctx, int64(1), w, int64(0)).Return([]int64{3}, nil).Once()
	err := ValidateNoOverlap(ctx, finder, 1, w, 0, testNow, true)
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "This airplane has flight in this time.", ve.Fields["airplane"])

	finder.On("FindOverlapping", ctx, int64(2), w, int64(0)).Return(nil, errors.New("db down")).Once()
	assert.EqualError(t, ValidateNoOverlap(ctx, finder, 2, w, 0, testNow, true), "db down")

	// window errors short-circuit the lookup
	bad := domain.Window{Departure: at(12), Arrival: at(10)}
	assert.True(t, domain.HasCode(ValidateNoOverlap(ctx, finder, 1, bad, 0, testNow, true), domain.CodeInvalidWindow))
	finder.AssertExpectations(t)
}
