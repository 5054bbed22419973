// Package broker implements the agent coordination broker: the session
// registry, channel table, reservation table, and routing rules that sit at
// the center of a multi-agent chat network. It is the only authoritative
// owner of cross-agent state; clients (see public/client) hold only a
// read-only replica.
package broker

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/danielstarman/hive/internal/wire"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Serve binds addr (use "127.0.0.1:0" for a kernel-chosen ephemeral port),
// starts accepting WebSocket connections and the heartbeat reaper, and
// returns the bound address. Serve does not block; it returns once the
// listener is up. The server stops when ctx is canceled.
func (s *Service) Serve(ctx context.Context, addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("broker: listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWS)
	httpSrv := &http.Server{Handler: mux}

	go s.reapLoop(s.cfg.HeartbeatTick, s.cfg.HeartbeatTimeout, s.stopReap)

	go func() {
		<-ctx.Done()
		close(s.stopReap)
		httpSrv.Close()
	}()

	go func() {
		if err := httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("serve failed")
		}
	}()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("broker listening")
	return ln.Addr(), nil
}

// handleWS upgrades one TCP connection to WebSocket and runs its read loop
// for the lifetime of the session. The first record MUST be register;
// anything else is rejected with an error and the broker keeps waiting.
func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	ob := newOutbound(conn)
	defer ob.close()

	var agentID string
	registered := false
	defer func() {
		if registered {
			s.disconnect(agentID)
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		rec, err := wire.FromJSON(data)
		if err != nil {
			ob.enqueue(wire.NewError("Invalid JSON", ""))
			continue
		}
		if err := rec.Validate(); err != nil {
			ob.enqueue(wire.NewError("Invalid JSON", ""))
			continue
		}

		if !registered {
			if rec.Type != wire.TypeRegister {
				ob.enqueue(wire.NewError("first record must be register", ""))
				continue
			}
			id, err := s.register(rec, ob)
			if err != nil {
				ob.enqueue(wire.NewError(err.Error(), ""))
				continue
			}
			agentID = id
			registered = true
			continue
		}

		s.dispatch(agentID, rec, ob)
	}
}

// dispatch routes one post-registration record. Unknown tags are ignored
// per the protocol's forward-compatibility rule.
func (s *Service) dispatch(senderID string, rec *wire.Record, ob *outbound) {
	switch rec.Type {
	case wire.TypeDM:
		s.handleDM(senderID, rec, ob)
	case wire.TypeDMResponse:
		s.handleDMResponse(senderID, rec)
	case wire.TypeBroadcast:
		s.handleBroadcast(senderID, rec)
	case wire.TypeChannelCreate:
		s.handleChannelCreate(senderID, rec, ob)
	case wire.TypeChannelJoin:
		s.handleChannelJoin(senderID, rec, ob)
	case wire.TypeChannelLeave:
		s.handleChannelLeave(senderID, rec, ob)
	case wire.TypeChannelSend:
		s.handleChannelSend(senderID, rec, ob)
	case wire.TypeListAgents:
		s.handleListAgents(ob)
	case wire.TypeListChannels:
		s.handleListChannels(ob)
	case wire.TypeReserve:
		s.handleReserve(senderID, rec, ob)
	case wire.TypeRelease:
		s.handleRelease(senderID, rec)
	case wire.TypeRename:
		s.handleRename(senderID, rec, ob)
	case wire.TypePresenceUpdate:
		s.handlePresenceUpdate(senderID, rec)
	case wire.TypeStatusUpdate:
		s.handleStatusUpdate(senderID, rec)
	case wire.TypeHeartbeat:
		s.handleHeartbeat(senderID, ob)
	default:
		s.log.Debug().Str("type", rec.Type).Msg("ignoring unknown record type")
	}
}

// DisconnectAgentByName is the administrative hook a hub process uses to
// forcibly evict an agent. It runs the same cleanup path a transport
// failure would and is a no-op if the name is not currently registered.
func (s *Service) DisconnectAgentByName(name string) bool {
	s.mu.RLock()
	id, ok := s.names[name]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	s.disconnect(id)
	return true
}
