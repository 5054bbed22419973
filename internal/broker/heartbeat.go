package broker

import "time"

// reapLoop sweeps the registry every tick, forcibly disconnecting any
// agent whose heartbeat is older than timeout.
func (s *Service) reapLoop(tick, timeout time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.reapOnce(timeout)
		}
	}
}

func (s *Service) reapOnce(timeout time.Duration) {
	deadline := time.Now().Add(-timeout)

	s.mu.RLock()
	var stale []string
	for id, last := range s.heartbeats {
		if last.Before(deadline) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range stale {
		s.log.Info().Str("agent_id", id).Msg("heartbeat timeout")
		s.disconnect(id)
	}
}
