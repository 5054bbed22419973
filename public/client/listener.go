package client

import "github.com/danielstarman/hive/internal/wire"

// AddListener registers fn to be called, in registration order, for every
// inbound record after the replica has been updated. The returned func
// deregisters it; a listener may call it from within its own callback.
func (s *Session) AddListener(fn Listener) func() {
	return s.addListener(fn)
}

func (s *Session) addListener(fn Listener) func() {
	s.mu.Lock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners = append(s.listeners, registeredListener{id: id, fn: fn})
	s.mu.Unlock()
	return func() { s.removeListener(id) }
}

func (s *Session) removeListener(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.listeners {
		if l.id == id {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// dispatch snapshots the listener list before iterating, so a listener
// that deregisters itself (or another) mid-callback can't corrupt the
// in-progress iteration.
func (s *Session) dispatch(rec *wire.Record) {
	s.mu.RLock()
	snapshot := make([]registeredListener, len(s.listeners))
	copy(snapshot, s.listeners)
	s.mu.RUnlock()

	for _, l := range snapshot {
		l.fn(rec)
	}
}
