package broker

import (
	"fmt"
	"time"

	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// handleDM routes a point-to-point message by display name. An unknown
// target produces an error on the sender's session, echoing correlationId.
func (s *Service) handleDM(senderID string, rec *wire.Record, ob *outbound) {
	s.mu.RLock()
	senderName := ""
	if sender, ok := s.agents[senderID]; ok {
		senderName = sender.Name
	}
	targetID, known := s.names[rec.To]
	var target *outbound
	if known {
		target = s.sessions[targetID]
	}
	s.mu.RUnlock()

	if !known || target == nil {
		ob.enqueue(wire.NewError(fmt.Sprintf("%s is not online", rec.To), rec.CorrelationID))
		return
	}

	target.enqueue(&wire.Record{
		Type:          wire.TypeDM,
		From:          senderID,
		FromName:      senderName,
		Content:       rec.Content,
		CorrelationID: rec.CorrelationID,
	})
}

// handleDMResponse routes a correlated reply. A vanished requester means
// the response is silently dropped.
func (s *Service) handleDMResponse(senderID string, rec *wire.Record) {
	s.mu.RLock()
	senderName := ""
	if sender, ok := s.agents[senderID]; ok {
		senderName = sender.Name
	}
	targetID, known := s.names[rec.To]
	var target *outbound
	if known {
		target = s.sessions[targetID]
	}
	s.mu.RUnlock()

	if !known || target == nil {
		return
	}

	target.enqueue(&wire.Record{
		Type:          wire.TypeDMResponse,
		From:          senderID,
		FromName:      senderName,
		CorrelationID: rec.CorrelationID,
		Content:       rec.Content,
	})
}

// handleBroadcast fans a message out to every agent except the sender.
func (s *Service) handleBroadcast(senderID string, rec *wire.Record) {
	s.mu.RLock()
	senderName := ""
	if sender, ok := s.agents[senderID]; ok {
		senderName = sender.Name
	}
	others := s.sessionsExceptLocked(senderID)
	s.mu.RUnlock()

	out := &wire.Record{Type: wire.TypeBroadcast, From: senderID, FromName: senderName, Content: rec.Content}
	for _, o := range others {
		o.enqueue(out)
	}
}

func (s *Service) handleListAgents(ob *outbound) {
	s.mu.RLock()
	roster := s.rosterLocked()
	s.mu.RUnlock()
	ob.enqueue(&wire.Record{Type: wire.TypeAgentList, Agents: roster})
}

func (s *Service) handleListChannels(ob *outbound) {
	s.mu.RLock()
	chans := s.channelsSnapshotLocked()
	s.mu.RUnlock()
	ob.enqueue(&wire.Record{Type: wire.TypeChannelList, Channels: chans})
}

// handlePresenceUpdate mutates statusMessage and lastActivityAt and
// broadcasts the full status_changed triple.
func (s *Service) handlePresenceUpdate(senderID string, rec *wire.Record) {
	s.mu.Lock()
	sender, ok := s.agents[senderID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if rec.StatusMessage != "" {
		sender.StatusMessage = rec.StatusMessage
	}
	if rec.LastActivityAt != "" {
		sender.LastActivityAt = rec.LastActivityAt
	} else {
		sender.LastActivityAt = nowISO()
	}
	out := statusChangedRecord(sender)
	others := s.sessionsExceptLocked(senderID)
	s.mu.Unlock()

	for _, o := range others {
		o.enqueue(out)
	}
}

// handleStatusUpdate mutates status and broadcasts status_changed.
func (s *Service) handleStatusUpdate(senderID string, rec *wire.Record) {
	s.mu.Lock()
	sender, ok := s.agents[senderID]
	if !ok {
		s.mu.Unlock()
		return
	}
	sender.Status = rec.Status
	out := statusChangedRecord(sender)
	others := s.sessionsExceptLocked(senderID)
	s.mu.Unlock()

	for _, o := range others {
		o.enqueue(out)
	}
}

func statusChangedRecord(a *model.AgentInfo) *wire.Record {
	return &wire.Record{
		Type:           wire.TypeStatusChanged,
		ID:             a.ID,
		Name:           a.Name,
		Status:         a.Status,
		StatusMessage:  a.StatusMessage,
		LastActivityAt: a.LastActivityAt,
	}
}

func (s *Service) handleHeartbeat(senderID string, ob *outbound) {
	s.mu.Lock()
	if _, ok := s.agents[senderID]; ok {
		s.heartbeats[senderID] = time.Now()
	}
	s.mu.Unlock()
	ob.enqueue(&wire.Record{Type: wire.TypeHeartbeatAck})
}
