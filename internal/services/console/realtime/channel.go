// Package realtime owns the console's single websocket connection to the
// fleet backend and keeps a short feed of the messages it pushes.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/louisbranch/fleetdeck/internal/platform/clock"
	"github.com/louisbranch/fleetdeck/internal/platform/timeouts"
)

// DefaultFeedSize bounds the recent-message feed.
const DefaultFeedSize = 20

// DefaultOrigin is sent when no origin is configured.
const DefaultOrigin = "http://localhost/"

// Message is one server-pushed envelope.
type Message struct {
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SentAt     time.Time       `json:"sent_at"`
	ReceivedAt time.Time       `json:"-"`
}

// Status describes the connection for display.
type Status struct {
	Connected    bool
	Endpoint     string
	ConnectionID string
	ConnectedAt  time.Time
	// LastError is the reason the previous connection ended, if it ended
	// abnormally.
	LastError error
}

// TokenSource supplies a bearer token for the handshake.
type TokenSource interface {
	Token() string
}

// Config describes the realtime endpoint.
type Config struct {
	URL      string
	Origin   string
	FeedSize int
	Tokens   TokenSource
	Clock    clock.Clock
}

// Channel holds at most one live connection. Connect and Disconnect are
// serialized on lifecycleMu, which is held across the dial; mu only guards
// state, so Status and Recent never wait on the network. The read loop runs
// on its own goroutine per connection.
type Channel struct {
	cfg Config

	lifecycleMu sync.Mutex

	mu          sync.Mutex
	conn        *websocket.Conn
	done        chan struct{}
	connID      string
	connectedAt time.Time
	lastErr     error
	feed        []Message
}

// NewChannel validates cfg and returns a disconnected channel.
func NewChannel(cfg Config) (*Channel, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.URL == "" {
		return nil, errors.New("realtime url is required")
	}
	if !strings.HasPrefix(cfg.URL, "ws://") && !strings.HasPrefix(cfg.URL, "wss://") {
		return nil, fmt.Errorf("realtime url must use ws or wss: %q", cfg.URL)
	}
	if strings.TrimSpace(cfg.Origin) == "" {
		cfg.Origin = DefaultOrigin
	}
	if cfg.FeedSize <= 0 {
		cfg.FeedSize = DefaultFeedSize
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if _, err := websocket.NewConfig(cfg.URL, cfg.Origin); err != nil {
		return nil, fmt.Errorf("realtime config: %w", err)
	}
	return &Channel{cfg: cfg}, nil
}

// Connect dials the endpoint unless a connection is already live, in which
// case it returns nil without dialing.
func (c *Channel) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.mu.Lock()
	live := c.conn != nil
	c.mu.Unlock()
	if live {
		return nil
	}

	wsConfig, err := websocket.NewConfig(c.cfg.URL, c.cfg.Origin)
	if err != nil {
		return fmt.Errorf("realtime config: %w", err)
	}
	if c.cfg.Tokens != nil {
		if token := c.cfg.Tokens.Token(); token != "" {
			wsConfig.Header.Set("Authorization", "Bearer "+token)
		}
	}
	dialCtx, cancel := context.WithTimeout(ctx, timeouts.RealtimeDial)
	defer cancel()
	conn, err := wsConfig.DialContext(dialCtx)
	if err != nil {
		return fmt.Errorf("realtime dial: %w", err)
	}

	done := make(chan struct{})
	connID := uuid.NewString()
	c.mu.Lock()
	c.conn = conn
	c.done = done
	c.connID = connID
	c.connectedAt = c.cfg.Clock.Now()
	c.lastErr = nil
	c.mu.Unlock()
	log.Printf("realtime connected endpoint=%s connection_id=%s", c.cfg.URL, connID)
	go c.readLoop(conn, connID, done)
	return nil
}

// Disconnect closes the live connection and waits for its reader to exit.
// It is a no-op when nothing is connected.
func (c *Channel) Disconnect() error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	c.mu.Lock()
	conn, done, connID := c.conn, c.done, c.connID
	c.conn = nil
	c.done = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}

	err := conn.Close()
	<-done
	log.Printf("realtime disconnected connection_id=%s", connID)
	if err != nil && !isClosedErr(err) {
		return fmt.Errorf("realtime close: %w", err)
	}
	return nil
}

// Status reports the current connection state.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{Endpoint: c.cfg.URL, LastError: c.lastErr}
	if c.conn != nil {
		st.Connected = true
		st.ConnectionID = c.connID
		st.ConnectedAt = c.connectedAt
	}
	return st
}

// Recent returns the feed, newest first.
func (c *Channel) Recent() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.feed))
	for i, msg := range c.feed {
		out[len(c.feed)-1-i] = msg
	}
	return out
}

func (c *Channel) readLoop(conn *websocket.Conn, connID string, done chan struct{}) {
	defer close(done)
	for {
		var frame []byte
		err := websocket.Message.Receive(conn, &frame)
		if errors.Is(err, websocket.ErrFrameTooLarge) {
			log.Printf("realtime frame dropped connection_id=%s err=%v", connID, err)
			continue
		}
		if err != nil {
			c.release(conn, connID, err)
			return
		}
		var msg Message
		if err := json.Unmarshal(frame, &msg); err != nil {
			log.Printf("realtime frame dropped connection_id=%s err=%v", connID, err)
			continue
		}
		c.record(msg)
	}
}

func (c *Channel) record(msg Message) {
	msg.ReceivedAt = c.cfg.Clock.Now()
	c.mu.Lock()
	c.feed = append(c.feed, msg)
	if over := len(c.feed) - c.cfg.FeedSize; over > 0 {
		c.feed = append(c.feed[:0], c.feed[over:]...)
	}
	c.mu.Unlock()
	log.Printf("realtime message type=%s", msg.Type)
}

// release drops conn after its reader ends. A connection already taken by
// Disconnect is left alone.
func (c *Channel) release(conn *websocket.Conn, connID string, cause error) {
	c.mu.Lock()
	owned := c.conn == conn
	if owned {
		c.conn = nil
		c.done = nil
		if !errors.Is(cause, io.EOF) {
			c.lastErr = cause
		}
	}
	c.mu.Unlock()
	if !owned {
		return
	}
	_ = conn.Close()
	log.Printf("realtime connection lost connection_id=%s err=%v", connID, cause)
}

func isClosedErr(err error) bool {
	return errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF)
}
