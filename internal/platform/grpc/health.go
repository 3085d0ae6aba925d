package grpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	gogrpc "google.golang.org/grpc"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthStatus is the console-facing view of a grpc.health.v1 response.
type HealthStatus string

const (
	HealthUnknown     HealthStatus = "unknown"
	HealthServing     HealthStatus = "serving"
	HealthNotServing  HealthStatus = "not_serving"
	HealthUnreachable HealthStatus = "unreachable"
)

// HealthProbe checks a backend's grpc.health.v1 service on demand.
type HealthProbe struct {
	conn    *gogrpc.ClientConn
	client  grpc_health_v1.HealthClient
	service string
	timeout time.Duration
}

// NewHealthProbe builds a probe over an existing connection. The probe does
// not own conn; callers close it.
func NewHealthProbe(conn *gogrpc.ClientConn, service string, timeout time.Duration) (*HealthProbe, error) {
	if conn == nil {
		return nil, errors.New("gRPC connection is not configured")
	}
	return &HealthProbe{
		conn:    conn,
		client:  grpc_health_v1.NewHealthClient(conn),
		service: service,
		timeout: timeout,
	}, nil
}

// Check performs one health call. Transport failures are reported as
// HealthUnreachable alongside the error.
func (p *HealthProbe) Check(ctx context.Context) (HealthStatus, error) {
	if p == nil || p.client == nil {
		return HealthUnknown, errors.New("health probe is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	resp, err := p.client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: p.service})
	if err != nil {
		return HealthUnreachable, fmt.Errorf("health check: %w", err)
	}
	switch resp.GetStatus() {
	case grpc_health_v1.HealthCheckResponse_SERVING:
		return HealthServing, nil
	case grpc_health_v1.HealthCheckResponse_NOT_SERVING:
		return HealthNotServing, nil
	default:
		return HealthUnknown, nil
	}
}
