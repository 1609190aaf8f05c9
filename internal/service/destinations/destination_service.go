package destinations

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/Domenick1991/flighter/internal/repository"
)

const (
	MinQueryLength = 2
	MaxQueryLength = 80

	resultLimit    = 3
	unknownCity    = "Unknown"
	unknownAirport = "Unknown Airport"
	cityGroupValue = "locations"
)

type DestinationUseCase interface {
	Search(ctx context.Context, query string) ([]domain.Destination, error)
}

type DestinationService struct {
	airports repository.AirportRepository
}

func NewDestinationService(airports repository.AirportRepository) *DestinationService {
	return &DestinationService{airports: airports}
}

// ValidQuery reports whether a trimmed query is long enough to search.
func ValidQuery(query string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(query))
	return n >= MinQueryLength && n <= MaxQueryLength
}

// Search returns matching airports. Cities with more than one match are
// collapsed into a single group listed ahead of the standalone airports.
func (s *DestinationService) Search(ctx context.Context, query string) ([]domain.Destination, error) {
	if !ValidQuery(query) {
		return []domain.Destination{}, nil
	}

	airports, err := s.airports.Search(ctx, strings.TrimSpace(query), resultLimit)
	if err != nil {
		return nil, fmt.Errorf("search airports: %w", err)
	}
	return group(airports), nil
}

func group(airports []domain.Airport) []domain.Destination {
	var cityOrder []string
	byCity := make(map[string][]domain.Destination)
	for _, a := range airports {
		city := cityOf(a)
		if _, seen := byCity[city]; !seen {
			cityOrder = append(cityOrder, city)
		}
		byCity[city] = append(byCity[city], airportOption(a))
	}

	results := make([]domain.Destination, 0, len(airports))
	for _, city := range cityOrder {
		if options := byCity[city]; len(options) > 1 {
			results = append(results, domain.Destination{
				Type:    domain.DestinationTypeCity,
				Value:   cityGroupValue,
				Trigger: city,
				Content: options,
			})
		}
	}
	for _, a := range airports {
		if len(byCity[cityOf(a)]) == 1 {
			results = append(results, airportOption(a))
		}
	}
	return results
}

func airportOption(a domain.Airport) domain.Destination {
	return domain.Destination{
		Type:      domain.DestinationTypeAirport,
		Value:     airportLabel(a),
		AirportID: strconv.FormatInt(a.ID, 10),
	}
}

func airportLabel(a domain.Airport) string {
	if a.Name != nil && *a.Name != "" {
		return *a.Name
	}
	if a.IATACode != nil && *a.IATACode != "" {
		return *a.IATACode
	}
	return unknownAirport
}

func cityOf(a domain.Airport) string {
	if a.City != nil && *a.City != "" {
		return *a.City
	}
	return unknownCity
}
