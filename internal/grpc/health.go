package grpc

import (
	"context"
	"net"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported next to the overall "" status.
const ServiceName = "storefront"

// Pinger is a dependency whose reachability decides the serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthServer struct {
	srv      *grpc.Server
	health   *health.Server
	checks   map[string]Pinger
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

func NewHealthServer(checks map[string]Pinger, interval time.Duration, log zerolog.Logger) *HealthServer {
	srv := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(srv)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		srv:      srv,
		health:   hs,
		checks:   checks,
		interval: interval,
		timeout:  2 * time.Second,
		log:      log.With().Str("component", "health").Logger(),
	}
}

func (s *HealthServer) Serve(lis net.Listener) error {
	return s.srv.Serve(lis)
}

// Monitor probes every dependency on each tick until ctx is cancelled.
func (s *HealthServer) Monitor(ctx context.Context) {
	s.probe(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.probe(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// probe reports SERVING only when every dependency answers.
func (s *HealthServer) probe(ctx context.Context) bool {
	healthy := true
	for name, check := range s.checks {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		err := check.Ping(pctx)
		cancel()
		if err != nil {
			healthy = false
			s.log.Warn().Err(err).Str("dependency", name).Msg("health probe failed")
		}
	}

	status := healthpb.HealthCheckResponse_SERVING
	if !healthy {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return healthy
}

func (s *HealthServer) GracefulStop() {
	s.health.Shutdown()
	s.srv.GracefulStop()
}
