// Package hub wraps a broker.Service for in-process embedding: the "hub"
// agent starts one of these instead of dialing out to a separately-run
// broker, publishes the discovery sidecar other agents use to find it, and
// gets an administrative hook to evict agents by name.
package hub

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danielstarman/hive/internal/broker"
)

// Embedded owns a broker.Service's full lifecycle: bind, publish discovery,
// accept connections, and tear both down together on Close.
type Embedded struct {
	ID      string
	log     zerolog.Logger
	service *broker.Service
	addr    net.Addr
	cancel  context.CancelFunc
}

// Start binds the broker to 127.0.0.1:0 (a kernel-chosen port, per the
// broker's startup requirement), begins accepting, and publishes the
// discovery sidecar. Failure to write the sidecar is logged but not fatal;
// an already-running broker remains reachable to anyone given its URL
// directly.
func Start(ctx context.Context, cfg broker.Config, logger zerolog.Logger) (*Embedded, error) {
	ctx, cancel := context.WithCancel(ctx)

	hubID := uuid.NewString()
	log := logger.With().Str("component", "hub").Str("hub_id", hubID).Logger()

	svc := broker.New(cfg, logger)
	addr, err := svc.Serve(ctx, "127.0.0.1:0")
	if err != nil {
		cancel()
		return nil, fmt.Errorf("hub: start broker: %w", err)
	}

	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		cancel()
		return nil, fmt.Errorf("hub: unexpected listener address type %T", addr)
	}

	if err := writeSidecar(tcpAddr.Port, hubID); err != nil {
		log.Error().Err(err).Msg("failed to write discovery sidecar")
	}

	log.Info().Str("addr", addr.String()).Msg("hub started")

	return &Embedded{
		ID:      hubID,
		log:     log,
		service: svc,
		addr:    addr,
		cancel:  cancel,
	}, nil
}

// Addr is the broker's bound address ("127.0.0.1:<port>").
func (e *Embedded) Addr() net.Addr {
	return e.addr
}

// BrokerURL is the WebSocket URL agents should dial to reach this hub.
func (e *Embedded) BrokerURL() string {
	return fmt.Sprintf("ws://%s/", e.addr.String())
}

// DisconnectAgentByName forcibly evicts a registered agent, running the
// same cleanup path a transport failure would.
func (e *Embedded) DisconnectAgentByName(name string) bool {
	return e.service.DisconnectAgentByName(name)
}

// Close stops accepting connections and removes the discovery sidecar.
func (e *Embedded) Close() error {
	e.cancel()
	if err := removeSidecar(); err != nil {
		e.log.Error().Err(err).Msg("failed to remove discovery sidecar")
		return err
	}
	e.log.Info().Msg("hub stopped")
	return nil
}
