package client

import (
	"context"
	"fmt"
	"time"

	"github.com/danielstarman/hive/internal/reservation"
	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// Send transmits a record with no reply correlation (broadcast, heartbeat,
// presence/status updates, dm_response). Callers that need a bound reply
// should use one of the typed operations below instead.
func (s *Session) Send(rec *wire.Record) error {
	return s.writeRecord(rec)
}

// await sends rec, then blocks until a record matching accept arrives, an
// error record arrives, the timeout elapses, or ctx is canceled. Because
// the protocol does not assign request ids to most operations, accept is
// responsible for recognizing "this is the reply to my send" — the spec's
// own recommendation for correlating replies without a request-id layer.
func (s *Session) await(ctx context.Context, rec *wire.Record, timeout time.Duration, accept func(*wire.Record) bool) (*wire.Record, error) {
	resultCh := make(chan *wire.Record, 1)
	unregister := s.addListener(func(r *wire.Record) {
		if accept(r) || r.Type == wire.TypeError {
			select {
			case resultCh <- r:
			default:
			}
		}
	})
	defer unregister()

	if err := s.writeRecord(rec); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case r := <-resultCh:
		if r.Type == wire.TypeError {
			return nil, fmt.Errorf("%s", r.Message)
		}
		return r, nil
	case <-timer.C:
		return nil, fmt.Errorf("client: timed out waiting for reply")
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.closed:
		return nil, fmt.Errorf("client: session closed")
	}
}

// DM sends a point-to-point message and blocks for the correlated
// dm_response.
func (s *Session) DM(ctx context.Context, to, content, correlationID string) (*wire.Record, error) {
	rec := &wire.Record{Type: wire.TypeDM, To: to, Content: content, CorrelationID: correlationID}
	return s.await(ctx, rec, s.cfg.Timeouts.DM, func(r *wire.Record) bool {
		return r.Type == wire.TypeDMResponse && r.CorrelationID == correlationID
	})
}

// DMResponse sends a reply to a correlated DM. Fire-and-forget: the
// protocol silently drops responses to a vanished requester.
func (s *Session) DMResponse(to, correlationID, content string) error {
	return s.Send(&wire.Record{Type: wire.TypeDMResponse, To: to, CorrelationID: correlationID, Content: content})
}

// Broadcast sends content to every other registered agent.
func (s *Session) Broadcast(content string) error {
	return s.Send(&wire.Record{Type: wire.TypeBroadcast, Content: content})
}

// ChannelCreate creates a named channel and waits for the broker's ack.
func (s *Session) ChannelCreate(ctx context.Context, name string) error {
	rec := &wire.Record{Type: wire.TypeChannelCreate, Channel: name}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.ChannelOp, func(r *wire.Record) bool {
		return r.Type == wire.TypeChannelCreated && r.Channel == name
	})
	return err
}

// ChannelJoin joins a channel and waits for the broker's ack.
func (s *Session) ChannelJoin(ctx context.Context, name string) error {
	rec := &wire.Record{Type: wire.TypeChannelJoin, Channel: name}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.ChannelOp, func(r *wire.Record) bool {
		return r.Type == wire.TypeChannelJoined && r.Channel == name && r.AgentID == s.cfg.ID
	})
	return err
}

// ChannelLeave leaves a channel and waits for the broker's ack.
func (s *Session) ChannelLeave(ctx context.Context, name string) error {
	rec := &wire.Record{Type: wire.TypeChannelLeave, Channel: name}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.ChannelOp, func(r *wire.Record) bool {
		return r.Type == wire.TypeChannelLeft && r.Channel == name && r.AgentID == s.cfg.ID
	})
	return err
}

// ChannelSend posts content to a channel and waits for the local ack.
func (s *Session) ChannelSend(ctx context.Context, name, content string) error {
	rec := &wire.Record{Type: wire.TypeChannelSend, Channel: name, Content: content}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.ChannelOp, func(r *wire.Record) bool {
		return r.Type == wire.TypeChannelSent && r.Channel == name
	})
	return err
}

// ListAgents requests a fresh roster snapshot from the broker (useful as a
// desync recovery strategy after a transport hiccup).
func (s *Session) ListAgents(ctx context.Context) ([]model.AgentInfo, error) {
	rec := &wire.Record{Type: wire.TypeListAgents}
	reply, err := s.await(ctx, rec, s.cfg.Timeouts.List, func(r *wire.Record) bool {
		return r.Type == wire.TypeAgentList
	})
	if err != nil {
		return nil, err
	}
	return reply.Agents, nil
}

// ListChannels requests a fresh channel table snapshot.
func (s *Session) ListChannels(ctx context.Context) ([]model.Channel, error) {
	rec := &wire.Record{Type: wire.TypeListChannels}
	reply, err := s.await(ctx, rec, s.cfg.Timeouts.List, func(r *wire.Record) bool {
		return r.Type == wire.TypeChannelList
	})
	if err != nil {
		return nil, err
	}
	return reply.Channels, nil
}

// Reserve claims paths (already absolute, or relative to cfg.Cwd) and
// waits for the resulting reservations_updated broadcast.
func (s *Session) Reserve(ctx context.Context, paths []string, reason string) error {
	resolved := make([]string, len(paths))
	for i, p := range paths {
		if n := reservation.Normalize(p, s.cfg.Cwd); n != "" {
			p = n
		}
		resolved[i] = p
	}
	rec := &wire.Record{Type: wire.TypeReserve, Paths: resolved, Reason: reason}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.Reservation, func(r *wire.Record) bool {
		return r.Type == wire.TypeReservationsUpdated
	})
	return err
}

// Release drops paths (resolved against cfg.Cwd the same way Reserve
// resolves them, or the caller's entire reservation if paths is empty) and
// waits for the resulting reservations_updated broadcast.
func (s *Session) Release(ctx context.Context, paths []string) error {
	resolved := make([]string, len(paths))
	for i, p := range paths {
		if n := reservation.Normalize(p, s.cfg.Cwd); n != "" {
			p = n
		}
		resolved[i] = p
	}
	rec := &wire.Record{Type: wire.TypeRelease, Paths: resolved}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.Reservation, func(r *wire.Record) bool {
		return r.Type == wire.TypeReservationsUpdated
	})
	return err
}

// Rename requests a display name change and waits for the broker's ack,
// which arrives even for a no-op rename.
func (s *Session) Rename(ctx context.Context, newName string) error {
	rec := &wire.Record{Type: wire.TypeRename, Name: newName}
	_, err := s.await(ctx, rec, s.cfg.Timeouts.ChannelOp, func(r *wire.Record) bool {
		return r.Type == wire.TypeAgentRenamed && r.ID == s.cfg.ID
	})
	return err
}

// PresenceUpdate sets statusMessage/lastActivityAt. Fire-and-forget.
func (s *Session) PresenceUpdate(statusMessage, lastActivityAt string) error {
	return s.Send(&wire.Record{Type: wire.TypePresenceUpdate, StatusMessage: statusMessage, LastActivityAt: lastActivityAt})
}

// StatusUpdate sets the coarse status enum. Fire-and-forget.
func (s *Session) StatusUpdate(status model.Status) error {
	return s.Send(&wire.Record{Type: wire.TypeStatusUpdate, Status: status})
}
