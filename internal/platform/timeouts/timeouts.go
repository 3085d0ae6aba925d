// Package timeouts defines shared timeout constants used by the console.
package timeouts

import "time"

// GRPCDial caps the wait time when dialing the backend gRPC health endpoint.
const GRPCDial = 2 * time.Second

// HealthCheck caps a single grpc.health.v1 Check call.
const HealthCheck = 2 * time.Second

// BackendRequest caps a single HTTP request to the fleet backend.
const BackendRequest = 10 * time.Second

// RealtimeDial caps the websocket handshake with the realtime endpoint.
const RealtimeDial = 5 * time.Second

// StorageOp caps a single token store read or write.
const StorageOp = 2 * time.Second

// ReadHeader limits how long an HTTP server waits for request headers.
const ReadHeader = 5 * time.Second

// Shutdown limits how long the HTTP server and the application instance
// wait for in-flight work during graceful shutdown.
const Shutdown = 5 * time.Second
