package flights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Domenick1991/airline/internal/cache"
	"github.com/Domenick1991/airline/internal/domain"
	"github.com/Domenick1991/airline/internal/repository"
)

type FlightUseCase interface {
	List(ctx context.Context, filter domain.FlightFilter, staff bool) ([]domain.FlightSummary, error)
	Get(ctx context.Context, id int64, staff bool) (*domain.FlightDetail, error)
	Create(ctx context.Context, in CreateInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, in UpdateInput) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
}

type ListingCache interface {
	Key(class cache.AuthClass, fingerprint string) string
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error)
	InvalidateAll(ctx context.Context) error
}

type Notifier interface {
	NotifyDepartureChanged(ctx context.Context, change domain.DepartureChange) error
}

type FlightService struct {
	repo              repository.FlightRepository
	cache             ListingCache
	cacheTTL          time.Duration
	notifier          Notifier
	now               func() time.Time
	sideEffectTimeout time.Duration
	logger            *slog.Logger
}

type Option func(*FlightService)

func WithNotifier(n Notifier) Option {
	return func(s *FlightService) { s.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(s *FlightService) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *FlightService) { s.logger = l }
}

// WithSideEffectTimeout bounds cache eviction and notification after commit.
func WithSideEffectTimeout(d time.Duration) Option {
	return func(s *FlightService) { s.sideEffectTimeout = d }
}

func NewFlightService(repo repository.FlightRepository, cache ListingCache, cacheTTL time.Duration, opts ...Option) *FlightService {
	s := &FlightService{
		repo:              repo,
		cache:             cache,
		cacheTTL:          cacheTTL,
		now:               time.Now,
		sideEffectTimeout: 5 * time.Second,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List serves the flight listing through the listing cache. Non-staff callers
// only see flights that have not departed.
func (s *FlightService) List(ctx context.Context, filter domain.FlightFilter, staff bool) ([]domain.FlightSummary, error) {
	filter.FutureOnly = !staff
	filter.Now = s.now()

	compute := func(ctx context.Context) ([]byte, error) {
		flights, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		return json.Marshal(flights)
	}

	var (
		data []byte
		err  error
	)
	if s.cache != nil {
		key := s.cache.Key(cache.ClassFor(staff), filter.Fingerprint())
		data, err = s.cache.GetOrCompute(ctx, key, s.cacheTTL, compute)
	} else {
		data, err = compute(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}

	var flights []domain.FlightSummary
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, fmt.Errorf("failed to decode flight listing: %w", err)
	}
	if flights == nil {
		flights = []domain.FlightSummary{}
	}

	if !staff {
		// a cached entry may predate a departure
		visible := flights[:0]
		for _, f := range flights {
			if f.DepartureTime.After(filter.Now) {
				visible = append(visible, f)
			}
		}
		flights = visible
	}
	return flights, nil
}

func (s *FlightService) Get(ctx context.Context, id int64, staff bool) (*domain.FlightDetail, error) {
	var futureAfter *time.Time
	if !staff {
		now := s.now()
		futureAfter = &now
	}
	return s.repo.GetDetail(ctx, id, futureAfter)
}

var _ FlightUseCase = (*FlightService)(nil)
