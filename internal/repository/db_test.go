package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

const testDatabaseEnv = "FLIGHTER_TEST_DATABASE_URL"

// testPool connects to the database named by FLIGHTER_TEST_DATABASE_URL and
// applies the schema inside a throwaway Postgres schema dropped on cleanup.
// The test is skipped when the variable is unset.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv(testDatabaseEnv)
	if dsn == "" {
		t.Skipf("%s is not set", testDatabaseEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := pgx.Connect(ctx, dsn)
	require.NoError(t, err)

	schemaName := "flighter_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schemaName)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = admin.Exec(ctx, "DROP SCHEMA "+schemaName+" CASCADE")
		_ = admin.Close(ctx)
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schemaName + ",public"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, EnsureSchema(ctx, pool))
	return pool
}

type fixture struct {
	// Schedules on the 1 -> 2 route, ordered by stops then distance.
	direct, oneStop, longDirect uuid.UUID
	// winterOnly is effective in January 2026 only.
	winterOnly uuid.UUID
}

// seedFlights loads three airports, one airline and four schedules from
// airport 1 to airport 2.
func seedFlights(t *testing.T, pool *pgxpool.Pool) fixture {
	t.Helper()
	ctx := context.Background()

	exec := func(sql string, args ...any) {
		t.Helper()
		_, err := pool.Exec(ctx, sql, args...)
		require.NoError(t, err)
	}

	exec(`INSERT INTO airlines (airline_id, name, iata_code) VALUES ('10', 'Skyways', 'SK')`)
	exec(`INSERT INTO airports (airport_id, name, city, iata_code) VALUES
		(1, 'Heathrow', 'London', 'LHR'),
		(2, 'Charles de Gaulle', 'Paris', 'CDG'),
		(3, 'Gatwick', 'London', 'LGW'),
		(4, NULL, NULL, 'ZZZ')`)

	f := fixture{
		direct:     uuid.New(),
		oneStop:    uuid.New(),
		longDirect: uuid.New(),
		winterOnly: uuid.New(),
	}

	route := func(stops int, distance float64) uuid.UUID {
		t.Helper()
		id := uuid.New()
		exec(`INSERT INTO routes (route_id, airline_id, source_airport_id, destination_airport_id, stops)
			VALUES ($1, '10', 1, 2, $2)`, id, stops)
		exec(`INSERT INTO route_metrics (route_id, distance_km, co2_total_kg) VALUES ($1, $2, 55.25)`, id, distance)
		return id
	}
	schedule := func(id, routeID uuid.UUID, number, from, to string) {
		t.Helper()
		exec(`INSERT INTO flight_schedules
			(flight_schedule_id, route_id, airline_id, flight_number, depart_time_local, arrive_time_local,
			 aircraft_iso, effective_from, effective_to)
			VALUES ($1, $2, '10', $3, '22:30', '00:15', 'A320', $4, $5)`, id, routeID, number, from, to)
	}

	schedule(f.oneStop, route(1, 340), "SK300", "2026-01-01", "2026-12-31")
	schedule(f.longDirect, route(0, 520.5), "SK200", "2026-01-01", "2026-12-31")
	schedule(f.direct, route(0, 344.4), "SK100", "2026-01-01", "2026-12-31")
	schedule(f.winterOnly, route(0, 600), "SK900", "2026-01-01", "2026-01-31")

	return f
}

func stringPtr(s string) *string { return &s }

func uniqueReference() string {
	return fmt.Sprintf("FLT-T%s", strings.ToUpper(uuid.NewString()[:8]))
}
