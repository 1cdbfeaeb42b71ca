package healthcheck

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/example/nutriscan/internal/logging"
)

// Probe queries a remote grpc.health.v1 endpoint.
type Probe struct {
	client healthpb.HealthClient
	logger *zap.Logger
}

// DialProbe returns a probe for addr and the connection to close when done.
func DialProbe(addr string, logger *zap.Logger, opts ...grpc.DialOption) (*Probe, *grpc.ClientConn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		wrapped := logging.NewOperationError("healthcheck.dial", "", err)
		logger.Error("failed to dial health endpoint", zap.Error(wrapped), zap.String("addr", addr))
		return nil, nil, wrapped
	}
	return &Probe{client: healthpb.NewHealthClient(conn), logger: logger}, conn, nil
}

// Status returns the serving status of service ("" for the whole server).
func (p *Probe) Status(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := p.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		wrapped := logging.NewOperationError("healthcheck.check", "", err)
		p.logger.Error("health check call failed", zap.Error(wrapped), zap.String("service", service))
		return healthpb.HealthCheckResponse_UNKNOWN, wrapped
	}
	return resp.GetStatus(), nil
}
