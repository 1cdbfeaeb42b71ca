package healthcheck

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/nutriscan/internal/logging"
	"github.com/example/nutriscan/internal/models"
)

// ServiceName is the gRPC health service name that mirrors the upstream
// analysis API.
const ServiceName = "nutriscan.AnalysisAPI"

// Checker fetches the upstream health document.
type Checker interface {
	Health(ctx context.Context) (*models.HealthStatus, error)
}

// Snapshot is the result of the last upstream check.
type Snapshot struct {
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status,omitempty"`
	Version   string    `json:"version,omitempty"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Monitor polls the analysis API and mirrors the outcome into a gRPC health
// server.
type Monitor struct {
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	health   *health.Server
	now      func() time.Time

	mu   sync.RWMutex
	last Snapshot
}

func NewMonitor(checker Checker, interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := 10 * time.Second
	if interval > 0 && interval < timeout {
		timeout = interval
	}
	m := &Monitor{
		checker:  checker,
		interval: interval,
		timeout:  timeout,
		logger:   logger.Named("health_monitor"),
		health:   health.NewServer(),
		now:      time.Now,
	}
	m.health.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_UNKNOWN)
	return m
}

// Check queries the upstream once and records the result.
func (m *Monitor) Check(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	snap := Snapshot{CheckedAt: m.now().UTC()}
	status, err := m.checker.Health(ctx)
	if err != nil {
		snap.Error = err.Error()
		logging.WithOperation(m.logger, "healthcheck.check", "").Warn("analysis API unhealthy", zap.Error(err))
	} else {
		snap.Healthy = true
		snap.Status = status.Status
		snap.Version = status.Version
	}

	serving := healthpb.HealthCheckResponse_NOT_SERVING
	if snap.Healthy {
		serving = healthpb.HealthCheckResponse_SERVING
	}
	m.health.SetServingStatus(ServiceName, serving)

	m.mu.Lock()
	m.last = snap
	m.mu.Unlock()
	return snap
}

// Last returns the most recent snapshot; the zero value before any check.
func (m *Monitor) Last() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// Run checks immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	m.Check(ctx)
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}

// Shutdown marks every service as not serving.
func (m *Monitor) Shutdown() {
	m.health.Shutdown()
}

// NewGRPCServer returns a gRPC server exposing grpc.health.v1.Health backed
// by the monitor.
func NewGRPCServer(m *Monitor, opts ...grpc.ServerOption) *grpc.Server {
	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, m.health)
	return server
}
