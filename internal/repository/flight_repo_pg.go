package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/flighter/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const searchLimit = 50

type FlightSearch struct {
	FromAirportID int64
	ToAirportID   int64
	// DepartDate restricts results to schedules effective on that day.
	DepartDate *time.Time
}

type FlightRepository interface {
	Search(ctx context.Context, params FlightSearch) ([]domain.Flight, error)
	GetBySchedule(ctx context.Context, scheduleID uuid.UUID) (*domain.Flight, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `r.route_id, r.airline_id::text, a.name, a.iata_code,
	fs.flight_schedule_id, fs.flight_number,
	to_char(fs.depart_time_local, 'HH24:MI'), to_char(fs.arrive_time_local, 'HH24:MI'),
	fs.aircraft_iso,
	r.source_airport_id::text, src.name, src.iata_code,
	r.destination_airport_id::text, dst.name, dst.iata_code,
	r.stops, rm.distance_km::float8, rm.co2_total_kg::float8`

func (r *PGFlightRepository) Search(ctx context.Context, params FlightSearch) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+`
		FROM routes r
		INNER JOIN flight_schedules fs ON r.route_id = fs.route_id
		INNER JOIN airlines a ON r.airline_id = a.airline_id
		INNER JOIN airports src ON r.source_airport_id = src.airport_id
		INNER JOIN airports dst ON r.destination_airport_id = dst.airport_id
		LEFT JOIN route_metrics rm ON r.route_id = rm.route_id
		WHERE r.source_airport_id = $1
			AND r.destination_airport_id = $2
			AND ($3::date IS NULL OR (fs.effective_from <= $3::date AND fs.effective_to >= $3::date))
		ORDER BY r.stops ASC, rm.distance_km ASC
		LIMIT $4`, params.FromAirportID, params.ToAirportID, params.DepartDate, searchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetBySchedule(ctx context.Context, scheduleID uuid.UUID) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+`
		FROM flight_schedules fs
		INNER JOIN routes r ON fs.route_id = r.route_id
		INNER JOIN airlines a ON fs.airline_id = a.airline_id
		INNER JOIN airports src ON r.source_airport_id = src.airport_id
		INNER JOIN airports dst ON r.destination_airport_id = dst.airport_id
		LEFT JOIN route_metrics rm ON r.route_id = rm.route_id
		WHERE fs.flight_schedule_id = $1
		LIMIT 1`, scheduleID)
	f, err := scanFlight(row)
	if err != nil {
		return nil, classify(err)
	}
	return f, nil
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(
		&f.RouteID, &f.AirlineID, &f.AirlineName, &f.AirlineIATA,
		&f.FlightScheduleID, &f.FlightNumber,
		&f.DepartTimeLocal, &f.ArriveTimeLocal,
		&f.AircraftISO,
		&f.SourceAirportID, &f.SourceName, &f.SourceIATA,
		&f.DestinationAirportID, &f.DestinationName, &f.DestinationIATA,
		&f.Stops, &f.DistanceKm, &f.CO2TotalKg,
	); err != nil {
		return nil, err
	}
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
