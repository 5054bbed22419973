package client

import (
	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// applyReplica updates the cached roster and reservation map from one
// inbound record, before any listener is notified. registered, agent_list,
// and reservations_updated are authoritative snapshots; everything else is
// an advisory delta applied on top of the last snapshot.
func (s *Session) applyReplica(rec *wire.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch rec.Type {
	case wire.TypeRegistered:
		s.selfID = rec.ID
		s.agents = indexAgents(rec.Agents)
		s.reservations = model.CloneReservationMap(rec.Reservations)

	case wire.TypeAgentJoined:
		if rec.Agent != nil {
			s.agents[rec.Agent.ID] = rec.Agent.Clone()
		}

	case wire.TypeAgentLeft:
		delete(s.agents, rec.ID)

	case wire.TypeAgentRenamed:
		if a, ok := s.agents[rec.ID]; ok {
			a.Name = rec.NewName
		}

	case wire.TypeAgentList:
		s.agents = indexAgents(rec.Agents)

	case wire.TypeReservationsUpdated:
		s.reservations = model.CloneReservationMap(rec.Reservations)

	case wire.TypeStatusChanged:
		if a, ok := s.agents[rec.ID]; ok {
			a.Status = rec.Status
			a.StatusMessage = rec.StatusMessage
			a.LastActivityAt = rec.LastActivityAt
		}

	case wire.TypeChannelCreated:
		for _, a := range s.agents {
			if a.Name == rec.By {
				a.AddChannel(rec.Channel)
				break
			}
		}

	case wire.TypeChannelJoined:
		if a, ok := s.agents[rec.AgentID]; ok {
			a.AddChannel(rec.Channel)
		}

	case wire.TypeChannelLeft:
		if a, ok := s.agents[rec.AgentID]; ok {
			a.RemoveChannel(rec.Channel)
		}
	}
}

func indexAgents(agents []model.AgentInfo) map[string]*model.AgentInfo {
	out := make(map[string]*model.AgentInfo, len(agents))
	for i := range agents {
		a := agents[i]
		out[a.ID] = &a
	}
	return out
}

// Roster returns a snapshot of the cached agent roster.
func (s *Session) Roster() []model.AgentInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.AgentInfo, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, *a.Clone())
	}
	return out
}

// Reservations returns a snapshot of the cached reservation map.
func (s *Session) Reservations() model.ReservationMap {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneReservationMap(s.reservations)
}
