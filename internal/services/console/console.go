// Package console hosts the operator-facing HTTP surface and the
// per-process application lifecycle behind it.
package console

import (
	"context"

	platformgrpc "github.com/louisbranch/fleetdeck/internal/platform/grpc"
	"github.com/louisbranch/fleetdeck/internal/services/console/backend"
	"github.com/louisbranch/fleetdeck/internal/services/console/realtime"
	"github.com/louisbranch/fleetdeck/internal/services/console/session"
)

// SessionSource exposes the current session state.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// Authenticator runs the sign-in and sign-out flows.
type Authenticator interface {
	Login(ctx context.Context, creds session.Credentials) error
	Logout(ctx context.Context) error
}

// DataClient is the fleet data-fetch layer.
type DataClient interface {
	ListRobots(ctx context.Context) ([]backend.Robot, error)
	ListOrders(ctx context.Context) ([]backend.Order, error)
	ListTemplates(ctx context.Context) ([]backend.Template, error)
	FetchEntity(ctx context.Context, kind backend.Kind, id string) (backend.Entity, error)
}

// RealtimeFeed reports the realtime connection for display.
type RealtimeFeed interface {
	Status() realtime.Status
	Recent() []realtime.Message
}

// HealthChecker probes backend health.
type HealthChecker interface {
	Check(ctx context.Context) (platformgrpc.HealthStatus, error)
}
