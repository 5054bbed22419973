package broker

import (
	"fmt"
	"strings"
	"time"

	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// register installs a newly connected agent. It resolves name collisions,
// replies registered to the newcomer, and broadcasts agent_joined to
// everyone else.
func (s *Service) register(rec *wire.Record, ob *outbound) (string, error) {
	if rec.ID == "" {
		return "", fmt.Errorf("register requires an id")
	}
	if rec.Name == "" {
		return "", fmt.Errorf("register requires a name")
	}

	s.mu.Lock()
	if _, exists := s.agents[rec.ID]; exists {
		s.mu.Unlock()
		return "", fmt.Errorf("id %q is already registered", rec.ID)
	}

	name := s.resolveNameLocked(rec.Name)
	info := &model.AgentInfo{
		ID:             rec.ID,
		Name:           name,
		Role:           rec.Role,
		ParentID:       rec.ParentID,
		Cwd:            rec.Cwd,
		Status:         model.StatusIdle,
		Channels:       []string{},
		Interactive:    rec.Interactive,
		LastActivityAt: nowISO(),
	}

	s.agents[info.ID] = info
	s.names[info.Name] = info.ID
	s.sessions[info.ID] = ob
	s.heartbeats[info.ID] = time.Now()

	roster := s.rosterLocked()
	reservations := s.reservationsSnapshotLocked()
	others := s.sessionsExceptLocked(info.ID)
	joinedAgent := info.Clone()
	s.mu.Unlock()

	ob.enqueue(&wire.Record{
		Type:         wire.TypeRegistered,
		ID:           info.ID,
		Agents:       roster,
		Reservations: reservations,
	})

	joined := &wire.Record{Type: wire.TypeAgentJoined, Agent: joinedAgent}
	for _, o := range others {
		o.enqueue(joined)
	}

	s.log.Info().Str("agent_id", info.ID).Str("name", info.Name).Msg("agent registered")
	return info.ID, nil
}

// resolveNameLocked finds the smallest free "name", "name-2", "name-3", ...
// Caller must hold s.mu for writing.
func (s *Service) resolveNameLocked(requested string) string {
	if _, taken := s.names[requested]; !taken {
		return requested
	}
	for k := 2; ; k++ {
		candidate := fmt.Sprintf("%s-%d", requested, k)
		if _, taken := s.names[candidate]; !taken {
			return candidate
		}
	}
}

// disconnect removes an agent from every table atomically and notifies the
// rest of the roster. It is idempotent: a second call for an id already
// gone is a no-op.
func (s *Service) disconnect(id string) {
	s.mu.Lock()
	info, ok := s.agents[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	name := info.Name

	delete(s.agents, id)
	delete(s.names, name)
	delete(s.heartbeats, id)
	ob := s.sessions[id]
	delete(s.sessions, id)

	for chName, ch := range s.channels {
		if !ch.HasMember(id) {
			continue
		}
		removeMember(ch, id)
		if len(ch.Members) == 0 {
			delete(s.channels, chName)
		}
	}

	_, hadReservation := s.reservations[id]
	delete(s.reservations, id)

	others := s.sessionsAllLocked()
	reservationsSnap := s.reservationsSnapshotLocked()
	s.mu.Unlock()

	if ob != nil {
		ob.close()
	}

	if hadReservation {
		upd := &wire.Record{Type: wire.TypeReservationsUpdated, Reservations: reservationsSnap}
		for _, o := range others {
			o.enqueue(upd)
		}
	}

	left := &wire.Record{Type: wire.TypeAgentLeft, ID: id, Name: name}
	for _, o := range others {
		o.enqueue(left)
	}

	s.log.Info().Str("agent_id", id).Str("name", name).Msg("agent disconnected")
}

// handleRename resolves a display-name change. A no-op rename (new == old)
// still emits agent_renamed to all, per the protocol's documented quirk.
func (s *Service) handleRename(senderID string, rec *wire.Record, ob *outbound) {
	newName := strings.TrimSpace(rec.Name)
	if newName == "" {
		ob.enqueue(wire.NewError("name must not be empty", ""))
		return
	}

	s.mu.Lock()
	sender, ok := s.agents[senderID]
	if !ok {
		s.mu.Unlock()
		return
	}
	oldName := sender.Name

	if newName != oldName {
		if _, taken := s.names[newName]; taken {
			s.mu.Unlock()
			ob.enqueue(wire.NewError(fmt.Sprintf("name %q is taken", newName), ""))
			return
		}
		delete(s.names, oldName)
		s.names[newName] = senderID
		sender.Name = newName
		for _, ch := range s.channels {
			if ch.CreatedBy == oldName {
				ch.CreatedBy = newName
			}
		}
	}

	all := s.sessionsAllLocked()
	s.mu.Unlock()

	out := &wire.Record{Type: wire.TypeAgentRenamed, ID: senderID, OldName: oldName, NewName: newName}
	for _, o := range all {
		o.enqueue(out)
	}

	s.log.Info().Str("agent_id", senderID).Str("old_name", oldName).Str("new_name", newName).Msg("agent renamed")
}
