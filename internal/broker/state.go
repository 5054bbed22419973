package broker

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/danielstarman/hive/public/model"
)

// Config controls broker timing. Zero-value fields are filled with
// DefaultConfig's values by New.
type Config struct {
	HeartbeatTick    time.Duration
	HeartbeatTimeout time.Duration
}

// DefaultConfig matches the recommended defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatTick:    30 * time.Second,
		HeartbeatTimeout: 60 * time.Second,
	}
}

// Service is the broker's single logical owner of all cross-agent state.
// One sync.RWMutex guards the registry, channel table, and reservation
// table together, since a disconnect mutates all three atomically.
type Service struct {
	cfg Config
	log zerolog.Logger

	mu           sync.RWMutex
	agents       map[string]*model.AgentInfo
	names        map[string]string
	sessions     map[string]*outbound
	heartbeats   map[string]time.Time
	channels     map[string]*model.Channel
	reservations model.ReservationMap

	stopReap chan struct{}
}

// New constructs a Service. Zero-value Config fields fall back to
// DefaultConfig.
func New(cfg Config, logger zerolog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.HeartbeatTick <= 0 {
		cfg.HeartbeatTick = defaults.HeartbeatTick
	}
	if cfg.HeartbeatTimeout <= 0 {
		cfg.HeartbeatTimeout = defaults.HeartbeatTimeout
	}

	return &Service{
		cfg:          cfg,
		log:          logger.With().Str("component", "broker").Logger(),
		agents:       make(map[string]*model.AgentInfo),
		names:        make(map[string]string),
		sessions:     make(map[string]*outbound),
		heartbeats:   make(map[string]time.Time),
		channels:     make(map[string]*model.Channel),
		reservations: make(model.ReservationMap),
		stopReap:     make(chan struct{}),
	}
}

// rosterLocked returns a snapshot of every registered agent. Caller must
// hold s.mu (read or write).
func (s *Service) rosterLocked() []model.AgentInfo {
	roster := make([]model.AgentInfo, 0, len(s.agents))
	for _, a := range s.agents {
		roster = append(roster, *a.Clone())
	}
	return roster
}

// channelsSnapshotLocked returns a snapshot of every channel.
func (s *Service) channelsSnapshotLocked() []model.Channel {
	out := make([]model.Channel, 0, len(s.channels))
	for _, c := range s.channels {
		out = append(out, *c.Clone())
	}
	return out
}

// reservationsSnapshotLocked returns a deep copy of the reservation table.
func (s *Service) reservationsSnapshotLocked() model.ReservationMap {
	return model.CloneReservationMap(s.reservations)
}

// sessionsAllLocked returns every connected session's outbound writer.
func (s *Service) sessionsAllLocked() []*outbound {
	out := make([]*outbound, 0, len(s.sessions))
	for _, o := range s.sessions {
		out = append(out, o)
	}
	return out
}

// sessionsExceptLocked returns every session except excludeID.
func (s *Service) sessionsExceptLocked(excludeID string) []*outbound {
	out := make([]*outbound, 0, len(s.sessions))
	for id, o := range s.sessions {
		if id == excludeID {
			continue
		}
		out = append(out, o)
	}
	return out
}

// sessionsForLocked returns the outbound writers for the given agent ids,
// skipping ids with no live session.
func (s *Service) sessionsForLocked(ids []string) []*outbound {
	out := make([]*outbound, 0, len(ids))
	for _, id := range ids {
		if o, ok := s.sessions[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

// sessionsForExceptLocked is sessionsForLocked with one id excluded.
func (s *Service) sessionsForExceptLocked(ids []string, excludeID string) []*outbound {
	out := make([]*outbound, 0, len(ids))
	for _, id := range ids {
		if id == excludeID {
			continue
		}
		if o, ok := s.sessions[id]; ok {
			out = append(out, o)
		}
	}
	return out
}

func removeMember(ch *model.Channel, id string) {
	for i, m := range ch.Members {
		if m == id {
			ch.Members = append(ch.Members[:i], ch.Members[i+1:]...)
			return
		}
	}
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
