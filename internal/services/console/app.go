package console

import (
	"context"
	"errors"
	"log"
	"sync"
)

// SessionLoader restores the durable token into the session.
type SessionLoader interface {
	Load(ctx context.Context) error
}

// Lifecycle is the auth controller surface the application drives.
type Lifecycle interface {
	Start(ctx context.Context)
	RestoreIfNeeded(ctx context.Context) (bool, error)
	Close()
}

// RealtimeConn is the realtime channel surface the application drives.
type RealtimeConn interface {
	Connect(ctx context.Context) error
	Disconnect() error
}

// Application is the per-process instance. Mount runs once at start and
// Unmount once at shutdown; callers defer Unmount right after Mount so it
// also runs when the process unwinds from a panic.
type Application struct {
	sessions SessionLoader
	auth     Lifecycle
	realtime RealtimeConn

	mu        sync.Mutex
	mounted   bool
	unmounted bool
}

// NewApplication wires the lifecycle participants.
func NewApplication(sessions SessionLoader, auth Lifecycle, rt RealtimeConn) (*Application, error) {
	switch {
	case sessions == nil:
		return nil, errors.New("session loader is required")
	case auth == nil:
		return nil, errors.New("auth lifecycle is required")
	case rt == nil:
		return nil, errors.New("realtime connection is required")
	}
	return &Application{sessions: sessions, auth: auth, realtime: rt}, nil
}

// Mount loads the stored token, opens the realtime connection, starts the
// auth controller and restores the session. Only a storage failure is
// fatal; an unreachable backend leaves the console usable and signed out.
func (a *Application) Mount(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mounted {
		return errors.New("application already mounted")
	}
	a.mounted = true

	if err := a.sessions.Load(ctx); err != nil {
		return err
	}
	if err := a.realtime.Connect(ctx); err != nil {
		log.Printf("realtime connect failed err=%v", err)
	}
	a.auth.Start(ctx)
	if _, err := a.auth.RestoreIfNeeded(ctx); err != nil {
		log.Printf("session restore failed err=%v", err)
	}
	return nil
}

// Unmount cancels the refresh task and closes the realtime connection. It
// is safe to call more than once and before Mount.
func (a *Application) Unmount() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.unmounted || !a.mounted {
		return
	}
	a.unmounted = true

	a.auth.Close()
	if err := a.realtime.Disconnect(); err != nil {
		log.Printf("realtime disconnect failed err=%v", err)
	}
}
