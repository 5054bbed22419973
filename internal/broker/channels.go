package broker

import (
	"fmt"

	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// handleChannelCreate creates a named channel with the sender as first
// member. A duplicate name is rejected on the sender's session.
func (s *Service) handleChannelCreate(senderID string, rec *wire.Record, ob *outbound) {
	name := rec.Channel
	s.mu.Lock()
	if _, exists := s.channels[name]; exists {
		s.mu.Unlock()
		ob.enqueue(wire.NewError(fmt.Sprintf("channel %q already exists", name), ""))
		return
	}
	sender, ok := s.agents[senderID]
	if !ok {
		s.mu.Unlock()
		return
	}
	s.channels[name] = &model.Channel{Name: name, Members: []string{senderID}, CreatedBy: sender.Name}
	sender.AddChannel(name)
	by := sender.Name
	all := s.sessionsAllLocked()
	s.mu.Unlock()

	out := &wire.Record{Type: wire.TypeChannelCreated, Channel: name, By: by}
	for _, o := range all {
		o.enqueue(out)
	}
}

// handleChannelJoin adds the sender to a channel's member set and notifies
// every current member, including the joiner.
func (s *Service) handleChannelJoin(senderID string, rec *wire.Record, ob *outbound) {
	name := rec.Channel
	s.mu.Lock()
	ch, exists := s.channels[name]
	if !exists {
		s.mu.Unlock()
		ob.enqueue(wire.NewError(fmt.Sprintf("channel %q does not exist", name), ""))
		return
	}
	sender, ok := s.agents[senderID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if !ch.HasMember(senderID) {
		ch.Members = append(ch.Members, senderID)
	}
	sender.AddChannel(name)
	agentName := sender.Name
	members := s.sessionsForLocked(ch.Members)
	s.mu.Unlock()

	out := &wire.Record{Type: wire.TypeChannelJoined, Channel: name, AgentID: senderID, AgentName: agentName}
	for _, o := range members {
		o.enqueue(out)
	}
}

// handleChannelLeave removes the sender from a channel, deleting the
// channel if it becomes empty, and notifies the sender plus whoever
// remains.
func (s *Service) handleChannelLeave(senderID string, rec *wire.Record, ob *outbound) {
	name := rec.Channel
	s.mu.Lock()
	ch, exists := s.channels[name]
	if !exists || !ch.HasMember(senderID) {
		s.mu.Unlock()
		ob.enqueue(wire.NewError(fmt.Sprintf("not a member of channel %q", name), ""))
		return
	}
	sender, ok := s.agents[senderID]
	if !ok {
		s.mu.Unlock()
		return
	}
	agentName := sender.Name
	recipients := s.sessionsForLocked(ch.Members)

	removeMember(ch, senderID)
	sender.RemoveChannel(name)
	if len(ch.Members) == 0 {
		delete(s.channels, name)
	}
	s.mu.Unlock()

	out := &wire.Record{Type: wire.TypeChannelLeft, Channel: name, AgentID: senderID, AgentName: agentName}
	for _, o := range recipients {
		o.enqueue(out)
	}
}

// handleChannelSend fans a message to every member except the sender, who
// instead receives a local channel_sent acknowledgement.
func (s *Service) handleChannelSend(senderID string, rec *wire.Record, ob *outbound) {
	name := rec.Channel
	s.mu.RLock()
	ch, exists := s.channels[name]
	isMember := exists && ch.HasMember(senderID)
	senderName := ""
	var others []*outbound
	if isMember {
		if sender, ok := s.agents[senderID]; ok {
			senderName = sender.Name
		}
		others = s.sessionsForExceptLocked(ch.Members, senderID)
	}
	s.mu.RUnlock()

	if !isMember {
		ob.enqueue(wire.NewError(fmt.Sprintf("not a member of channel %q", name), ""))
		return
	}

	msg := &wire.Record{Type: wire.TypeChannelMessage, Channel: name, From: senderID, FromName: senderName, Content: rec.Content}
	for _, o := range others {
		o.enqueue(msg)
	}
	ob.enqueue(&wire.Record{Type: wire.TypeChannelSent, Channel: name})
}
