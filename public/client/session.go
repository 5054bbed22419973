// Package client is the session library every agent embeds to talk to the
// broker: it hides WebSocket framing, maintains a read-only replica of the
// agent roster and reservation map, and exposes a send primitive plus a
// listener registration primitive for conversational records.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/danielstarman/hive/internal/reservation"
	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// Listener receives every inbound record after the session's replica has
// been updated. It may deregister itself mid-callback.
type Listener func(rec *wire.Record)

// Timeouts holds the per-operation deadlines recommended by the protocol.
type Timeouts struct {
	DM          time.Duration
	ChannelOp   time.Duration
	Reservation time.Duration
	List        time.Duration
}

// DefaultTimeouts matches the protocol's recommended defaults.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		DM:          120 * time.Second,
		ChannelOp:   3 * time.Second,
		Reservation: 4 * time.Second,
		List:        2 * time.Second,
	}
}

// Config describes one agent's identity and connection parameters.
type Config struct {
	BrokerURL         string
	ID                string
	Name              string
	Role              string
	ParentID          string
	Cwd               string
	Interactive       bool
	HeartbeatInterval time.Duration
	Timeouts          Timeouts
}

func (c *Config) fillDefaults() {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 20 * time.Second
	}
	if c.Timeouts == (Timeouts{}) {
		c.Timeouts = DefaultTimeouts()
	}
}

// Session is one agent's bidirectional connection to the broker.
type Session struct {
	cfg Config
	log zerolog.Logger

	conn    *websocket.Conn
	writeMu sync.Mutex

	mu             sync.RWMutex
	selfID         string
	agents         map[string]*model.AgentInfo
	reservations   model.ReservationMap
	listeners      []registeredListener
	nextListenerID int

	closed    chan struct{}
	closeOnce sync.Once
}

type registeredListener struct {
	id int
	fn Listener
}

// Connect dials the broker, sends register, and waits for the registered
// reply before returning. It starts the read loop and heartbeat goroutines.
func Connect(ctx context.Context, cfg Config, logger zerolog.Logger) (*Session, error) {
	cfg.fillDefaults()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.BrokerURL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", cfg.BrokerURL, err)
	}

	s := &Session{
		cfg:          cfg,
		log:          logger.With().Str("agent_id", cfg.ID).Logger(),
		conn:         conn,
		agents:       make(map[string]*model.AgentInfo),
		reservations: make(model.ReservationMap),
		closed:       make(chan struct{}),
	}

	registeredCh := make(chan *wire.Record, 1)
	unregister := s.addListener(func(rec *wire.Record) {
		if rec.Type == wire.TypeRegistered {
			select {
			case registeredCh <- rec:
			default:
			}
		}
	})

	go s.readLoop()

	if err := s.writeRecord(&wire.Record{
		Type:        wire.TypeRegister,
		ID:          cfg.ID,
		Name:        cfg.Name,
		Role:        cfg.Role,
		ParentID:    cfg.ParentID,
		Cwd:         cfg.Cwd,
		Interactive: cfg.Interactive,
	}); err != nil {
		unregister()
		conn.Close()
		return nil, fmt.Errorf("client: register: %w", err)
	}

	select {
	case <-registeredCh:
	case <-time.After(cfg.Timeouts.List):
		unregister()
		conn.Close()
		return nil, fmt.Errorf("client: timed out waiting for registered")
	case <-ctx.Done():
		unregister()
		conn.Close()
		return nil, ctx.Err()
	}
	unregister()

	go s.heartbeatLoop()
	return s, nil
}

// ID returns the id this session registered with (possibly renamed since,
// the id itself never changes).
func (s *Session) ID() string {
	return s.cfg.ID
}

func (s *Session) readLoop() {
	defer close(s.closed)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		rec, err := wire.FromJSON(data)
		if err != nil {
			continue
		}
		s.applyReplica(rec)
		s.dispatch(rec)
	}
}

func (s *Session) heartbeatLoop() {
	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.closed:
			return
		case <-ticker.C:
			s.writeRecord(&wire.Record{Type: wire.TypeHeartbeat})
		}
	}
}

// writeRecord serializes one JSON frame; gorilla's Conn is not safe for
// concurrent writers.
func (s *Session) writeRecord(rec *wire.Record) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.closed:
		return nil
	default:
	}
	return s.conn.WriteJSON(rec)
}

// Close stops the heartbeat and closes the transport. Further sends become
// no-ops. Honors ctx so a caller-supplied abort signal unblocks promptly.
func (s *Session) Close(ctx context.Context) error {
	done := make(chan error, 1)
	s.closeOnce.Do(func() {
		done <- s.conn.Close()
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}
