package flights

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/pricing"
	"github.com/Domenick1991/flighter/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidDate    = errors.New("invalid departure date")
	ErrFlightNotFound = errors.New("flight not found")
)

const minutesPerDay = 24 * 60

type FlightUseCase interface {
	Search(ctx context.Context, input SearchInput) ([]domain.PricedFlight, error)
	Details(ctx context.Context, scheduleID uuid.UUID) (*domain.PricedFlight, error)
	Quote(ctx context.Context, input QuoteInput) (*pricing.Breakdown, error)
}

type FlightCache interface {
	GetFlights(ctx context.Context, key string) ([]domain.PricedFlight, error)
	SetFlights(ctx context.Context, key string, flights []domain.PricedFlight) error
}

type SearchInput struct {
	FromID int64
	ToID   int64
	// DepartDate is "2006-01-02" or RFC3339. Empty means any day.
	DepartDate string
}

type QuoteInput struct {
	DepartureScheduleID uuid.UUID
	ReturnScheduleID    *uuid.UUID
	Class               domain.FlightClass
	Adults              int
	Children            int
}

type FlightService struct {
	repo  repository.FlightRepository
	cache FlightCache
	log   *zap.Logger
	now   func() time.Time
}

type Option func(*FlightService)

func WithClock(now func() time.Time) Option {
	return func(s *FlightService) {
		s.now = now
	}
}

// NewFlightService builds the search service. cache may be nil.
func NewFlightService(repo repository.FlightRepository, cache FlightCache, log *zap.Logger, opts ...Option) *FlightService {
	s := &FlightService{
		repo:  repo,
		cache: cache,
		log:   log.With(zap.String("service", "flights")),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search lists schedules between two airports, priced for the departure
// month, or the current month when no date is given.
func (s *FlightService) Search(ctx context.Context, input SearchInput) ([]domain.PricedFlight, error) {
	departDate, err := parseDate(input.DepartDate)
	if err != nil {
		return nil, err
	}

	month := s.now().Month()
	if departDate != nil {
		month = departDate.Month()
	}

	key := cacheKey(input, departDate, month)
	if s.cache != nil {
		cached, err := s.cache.GetFlights(ctx, key)
		if err != nil {
			s.log.Warn("flight cache read failed", zap.String("key", key), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	rows, err := s.repo.Search(ctx, repository.FlightSearch{
		FromAirportID: input.FromID,
		ToAirportID:   input.ToID,
		DepartDate:    departDate,
	})
	if err != nil {
		return nil, fmt.Errorf("search flights: %w", err)
	}

	flights := make([]domain.PricedFlight, 0, len(rows))
	for _, row := range rows {
		flights = append(flights, priceFlight(row, month))
	}

	if s.cache != nil {
		if err := s.cache.SetFlights(ctx, key, flights); err != nil {
			s.log.Warn("flight cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return flights, nil
}

// Details prices one schedule at the current month.
func (s *FlightService) Details(ctx context.Context, scheduleID uuid.UUID) (*domain.PricedFlight, error) {
	flight, err := s.getSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	priced := priceFlight(*flight, s.now().Month())
	return &priced, nil
}

// Quote prices an itinerary for every traveller, children included.
func (s *FlightService) Quote(ctx context.Context, input QuoteInput) (*pricing.Breakdown, error) {
	month := s.now().Month()

	departure, err := s.getSchedule(ctx, input.DepartureScheduleID)
	if err != nil {
		return nil, err
	}
	it := pricing.Itinerary{
		Departure:  fares(*departure, month),
		Class:      input.Class,
		Passengers: input.Adults + input.Children,
	}

	if input.ReturnScheduleID != nil {
		ret, err := s.getSchedule(ctx, *input.ReturnScheduleID)
		if err != nil {
			return nil, err
		}
		returnFares := fares(*ret, month)
		it.Return = &returnFares
	}

	breakdown := pricing.Quote(it)
	return &breakdown, nil
}

func (s *FlightService) getSchedule(ctx context.Context, scheduleID uuid.UUID) (*domain.Flight, error) {
	flight, err := s.repo.GetBySchedule(ctx, scheduleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrFlightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule %s: %w", scheduleID, err)
	}
	return flight, nil
}

func priceFlight(f domain.Flight, month time.Month) domain.PricedFlight {
	return domain.PricedFlight{
		Flight:          f,
		DurationMinutes: durationMinutes(f.DepartTimeLocal, f.ArriveTimeLocal),
		Pricing:         fares(f, month),
	}
}

func fares(f domain.Flight, month time.Month) domain.FareQuote {
	var distance float64
	if f.DistanceKm != nil {
		distance = *f.DistanceKm
	}
	return pricing.ComputeFares(distance, f.Stops, month)
}

// durationMinutes treats an arrival earlier than departure as next-day.
func durationMinutes(depart, arrive string) int {
	d, a := clockMinutes(depart), clockMinutes(arrive)
	if a >= d {
		return a - d
	}
	return minutesPerDay - d + a
}

// clockMinutes parses "HH:MM". Malformed values count as midnight.
func clockMinutes(hhmm string) int {
	hours, minutes, ok := strings.Cut(hhmm, ":")
	if !ok {
		return 0
	}
	h, err := strconv.Atoi(hours)
	if err != nil {
		return 0
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0
	}
	return h*60 + m
}

func parseDate(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t, nil
		}
	}
	return nil, ErrInvalidDate
}

// cacheKey keys undated searches by their pricing month.
func cacheKey(input SearchInput, departDate *time.Time, month time.Month) string {
	date := "any-" + strconv.Itoa(int(month))
	if departDate != nil {
		date = departDate.Format(time.DateOnly)
	}
	return fmt.Sprintf("%d:%d:%s", input.FromID, input.ToID, date)
}

var _ FlightUseCase = (*FlightService)(nil)
