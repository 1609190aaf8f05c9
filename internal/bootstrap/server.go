package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flighter/api"
	"github.com/Domenick1991/flighter/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	swaggerDoc      = "flighter.swagger.json"
	shutdownTimeout = 5 * time.Second
	readyInterval   = 10 * time.Second
)

// Handlers groups the HTTP handlers mounted under /api. Nil handlers are
// skipped.
type Handlers struct {
	Bookings     *api.BookingHandler
	Flights      *api.FlightHandler
	Destinations *api.DestinationHandler
	// LookupLimit, when set, guards the booking read endpoints.
	LookupLimit gin.HandlerFunc
}

// ReadinessCheck reports whether dependencies are reachable.
type ReadinessCheck func(ctx context.Context) error

// Dependency names one readiness check.
type Dependency struct {
	Name  string
	Check ReadinessCheck
}

// AllReady runs the checks in order and stops at the first failure.
func AllReady(deps ...Dependency) ReadinessCheck {
	return func(ctx context.Context) error {
		for _, dep := range deps {
			if err := dep.Check(ctx); err != nil {
				return fmt.Errorf("%s: %w", dep.Name, err)
			}
		}
		return nil
	}
}

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server
	ready      ReadinessCheck
	interval   time.Duration
	log        *zap.Logger
}

func NewRouter(cfg *config.Config, h Handlers, log *zap.Logger) *gin.Engine {
	engine := gin.New()
	engine.Use(api.Recovery(log), api.AccessLog(log))

	if len(cfg.HTTP.AllowedOrigins) > 0 {
		engine.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.HTTP.AllowedOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", api.BookingTokenHeader, api.AdminKeyHeader},
			ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			MaxAge:        12 * time.Hour,
		}))
	}
	engine.Use(api.RequestTimeout(cfg.HTTP.RequestTimeout()))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.HTTP.SwaggerDir != "" {
		engine.Static("/swagger", cfg.HTTP.SwaggerDir)
		engine.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/"+swaggerDoc),
		)))
	}

	apiGroup := engine.Group("/api")
	if h.Destinations != nil {
		h.Destinations.Register(apiGroup.Group("/search"))
	}
	if h.Flights != nil {
		h.Flights.Register(apiGroup.Group("/flights"))
	}
	if h.Bookings != nil {
		var limits []gin.HandlerFunc
		if h.LookupLimit != nil {
			limits = append(limits, h.LookupLimit)
		}
		h.Bookings.Register(apiGroup.Group("/bookings"), limits...)
	}

	return engine
}

func NewServers(cfg *config.Config, router http.Handler, ready ReadinessCheck, log *zap.Logger) *Servers {
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, hs)

	return &Servers{
		grpcServer: grpcSrv,
		health:     hs,
		httpServer: &http.Server{
			Addr:              cfg.HTTP.Address,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		ready:    ready,
		interval: readyInterval,
		log:      log,
	}
}

// Run starts the gRPC health server and the HTTP server and blocks until
// ctx is canceled or a server fails.
func (s *Servers) Run(ctx context.Context, grpcAddr string) error {
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", grpcAddr, err)
	}

	errCh := make(chan error, 2)
	go func() { errCh <- s.grpcServer.Serve(lis) }()
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go s.watchReadiness(ctx)
	s.log.Info("servers started", zap.String("http", s.httpServer.Addr), zap.String("grpc", grpcAddr))

	select {
	case err := <-errCh:
		s.stop()
		return err
	case <-ctx.Done():
		return s.stop()
	}
}

// watchReadiness re-runs the readiness check every interval until ctx is
// done, keeping the gRPC health status in step with it.
func (s *Servers) watchReadiness(ctx context.Context) {
	serving := s.markReady(ctx, false)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			serving = s.markReady(ctx, serving)
		}
	}
}

// markReady runs the readiness check once and updates the health status.
// It reports whether the server is now serving.
func (s *Servers) markReady(ctx context.Context, wasServing bool) bool {
	if s.ready != nil {
		if err := s.ready(ctx); err != nil {
			s.log.Warn("readiness check failed", zap.Error(err))
			s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
			return false
		}
	}
	if !wasServing {
		s.log.Info("dependencies ready")
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return true
}

func (s *Servers) stop() error {
	s.health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.grpcServer.GracefulStop()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
