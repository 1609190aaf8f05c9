package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/flighter/config"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func testConfig() *config.Config {
	return &config.Config{
		HTTP: config.HTTPConfig{
			Address:               ":0",
			AllowedOrigins:        []string{"http://localhost:3000"},
			RequestTimeoutSeconds: 5,
		},
	}
}

func TestNewRouter_Healthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(testConfig(), Handlers{}, zap.NewNop())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNewRouter_CORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(testConfig(), Handlers{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodOptions, "/api/bookings", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "X-Booking-Token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewRouter_NoOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	cfg.HTTP.AllowedOrigins = nil

	assert.NotPanics(t, func() { NewRouter(cfg, Handlers{}, zap.NewNop()) })
}

func TestServers_MarkReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	router := NewRouter(cfg, Handlers{}, zap.NewNop())
	ctx := context.Background()
	req := &healthpb.HealthCheckRequest{}

	failing := NewServers(cfg, router, func(context.Context) error { return errors.New("db down") }, zap.NewNop())
	assert.False(t, failing.markReady(ctx, false))
	resp, err := failing.health.Check(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	ok := NewServers(cfg, router, func(context.Context) error { return nil }, zap.NewNop())
	assert.True(t, ok.markReady(ctx, false))
	resp, err = ok.health.Check(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestServers_WatchReadinessRecovers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	router := NewRouter(cfg, Handlers{}, zap.NewNop())

	var healthy atomic.Bool
	srv := NewServers(cfg, router, func(context.Context) error {
		if healthy.Load() {
			return nil
		}
		return errors.New("db down")
	}, zap.NewNop())
	srv.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.watchReadiness(ctx)

	status := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := srv.health.Check(context.Background(), &healthpb.HealthCheckRequest{})
		if err != nil {
			return healthpb.HealthCheckResponse_UNKNOWN
		}
		return resp.Status
	}

	assert.Never(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING },
		50*time.Millisecond, 10*time.Millisecond)

	healthy.Store(true)
	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_SERVING },
		time.Second, 10*time.Millisecond)

	healthy.Store(false)
	assert.Eventually(t, func() bool { return status() == healthpb.HealthCheckResponse_NOT_SERVING },
		time.Second, 10*time.Millisecond)
}

func TestAllReady(t *testing.T) {
	ctx := context.Background()
	var kafkaChecked bool
	kafkaCheck := func(context.Context) error {
		kafkaChecked = true
		return errors.New("no brokers")
	}

	assert.NoError(t, AllReady()(ctx))

	err := AllReady(
		Dependency{Name: "postgres", Check: func(context.Context) error { return nil }},
		Dependency{Name: "kafka", Check: kafkaCheck},
	)(ctx)
	assert.EqualError(t, err, "kafka: no brokers")
	assert.True(t, kafkaChecked)

	kafkaChecked = false
	err = AllReady(
		Dependency{Name: "postgres", Check: func(context.Context) error { return errors.New("refused") }},
		Dependency{Name: "kafka", Check: kafkaCheck},
	)(ctx)
	assert.EqualError(t, err, "postgres: refused")
	assert.False(t, kafkaChecked)
}
