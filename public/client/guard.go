package client

import (
	"errors"
	"fmt"

	"github.com/danielstarman/hive/internal/reservation"
)

// GuardWrite blocks a would-be file write against path if another agent
// holds an overlapping reservation, normalizing path against the session's
// own cwd exactly as Reserve does before sending. A nil return means the write is
// clear to proceed; the guard does not itself acquire anything.
func (s *Session) GuardWrite(path string) error {
	normalized := reservation.Normalize(path, s.cfg.Cwd)
	if normalized == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for ownerID, res := range s.reservations {
		if ownerID == s.selfID {
			continue
		}
		for _, existing := range res.Paths {
			if !reservation.Overlap(existing, normalized) {
				continue
			}
			ownerName := ownerID
			if a, ok := s.agents[ownerID]; ok {
				ownerName = a.Name
			}
			msg := fmt.Sprintf("%q is reserved by %s", normalized, ownerName)
			if res.Reason != "" {
				msg += fmt.Sprintf(" (%s)", res.Reason)
			}
			return errors.New(msg)
		}
	}
	return nil
}
