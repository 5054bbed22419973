package broker

import (
	"fmt"

	"github.com/danielstarman/hive/internal/reservation"
	"github.com/danielstarman/hive/internal/wire"
	"github.com/danielstarman/hive/public/model"
)

// handleReserve normalizes and dedups the incoming paths, rejects on any
// overlap with a reservation owned by a different agent, and otherwise
// merges them into the caller's reservation and broadcasts the new map.
func (s *Service) handleReserve(senderID string, rec *wire.Record, ob *outbound) {
	if len(rec.Paths) == 0 {
		ob.enqueue(wire.NewError("reserve requires at least one path", ""))
		return
	}

	normalized := make([]string, 0, len(rec.Paths))
	for _, p := range rec.Paths {
		n := reservation.Normalize(p, "")
		if n == "" {
			ob.enqueue(wire.NewError(fmt.Sprintf("invalid path %q", p), ""))
			return
		}
		normalized = append(normalized, n)
	}
	normalized = reservation.Dedup(normalized)

	s.mu.Lock()

	for ownerID, res := range s.reservations {
		if ownerID == senderID {
			continue
		}
		for _, existing := range res.Paths {
			for _, incoming := range normalized {
				if !reservation.Overlap(existing, incoming) {
					continue
				}
				ownerName := ownerID
				if owner, ok := s.agents[ownerID]; ok {
					ownerName = owner.Name
				}
				s.mu.Unlock()

				msg := fmt.Sprintf("path %q conflicts with a reservation held by %s", incoming, ownerName)
				if res.Reason != "" {
					msg += fmt.Sprintf(" (%s)", res.Reason)
				}
				ob.enqueue(wire.NewError(msg, ""))
				return
			}
		}
	}

	existing, ok := s.reservations[senderID]
	if !ok {
		existing = &model.Reservation{}
		s.reservations[senderID] = existing
	}
	existing.Paths = reservation.Dedup(append(existing.Paths, normalized...))
	if rec.Reason != "" {
		existing.Reason = rec.Reason
	}

	snap := s.reservationsSnapshotLocked()
	all := s.sessionsAllLocked()
	s.mu.Unlock()

	out := &wire.Record{Type: wire.TypeReservationsUpdated, Reservations: snap}
	for _, o := range all {
		o.enqueue(out)
	}
}

// handleRelease clears the caller's whole reservation when no paths are
// given, or just the named paths otherwise. A no-op release still
// broadcasts reservations_updated, so clients can treat its arrival as
// confirmation that the release was observed.
func (s *Service) handleRelease(senderID string, rec *wire.Record) {
	s.mu.Lock()

	if len(rec.Paths) == 0 {
		delete(s.reservations, senderID)
	} else if res, ok := s.reservations[senderID]; ok {
		toRemove := make(map[string]bool, len(rec.Paths))
		for _, p := range rec.Paths {
			toRemove[reservation.Normalize(p, "")] = true
		}
		kept := make([]string, 0, len(res.Paths))
		for _, p := range res.Paths {
			if !toRemove[p] {
				kept = append(kept, p)
			}
		}
		if len(kept) == 0 {
			delete(s.reservations, senderID)
		} else {
			res.Paths = kept
		}
	}

	snap := s.reservationsSnapshotLocked()
	all := s.sessionsAllLocked()
	s.mu.Unlock()

	out := &wire.Record{Type: wire.TypeReservationsUpdated, Reservations: snap}
	for _, o := range all {
		o.enqueue(out)
	}
}
