// Package grpc holds the console's gRPC client helpers.
package grpc

import (
	"errors"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// DefaultClientDialOptions returns standard dial options for backend clients.
// Includes the OTel stats handler so every outbound call propagates trace
// context when a TracerProvider is registered.
func DefaultClientDialOptions() []gogrpc.DialOption {
	return []gogrpc.DialOption{
		gogrpc.WithTransportCredentials(insecure.NewCredentials()),
		gogrpc.WithStatsHandler(otelgrpc.NewClientHandler()),
	}
}

// NewClient creates a lazily connecting client for addr. Extra options are
// appended after the defaults.
func NewClient(addr string, opts ...gogrpc.DialOption) (*gogrpc.ClientConn, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("gRPC address is required")
	}
	return gogrpc.NewClient(addr, append(DefaultClientDialOptions(), opts...)...)
}
