package broker

import (
	"github.com/gorilla/websocket"

	"github.com/danielstarman/hive/internal/wire"
)

// outbound serializes writes to one agent's WebSocket connection behind a
// buffered channel, so a slow or wedged reader never blocks the goroutine
// that holds the broker's state lock. This mirrors the teacher's rule of
// releasing the mutex before any call that can block on the network.
type outbound struct {
	conn *websocket.Conn
	send chan *wire.Record
	done chan struct{}
}

func newOutbound(conn *websocket.Conn) *outbound {
	o := &outbound{
		conn: conn,
		send: make(chan *wire.Record, 64),
		done: make(chan struct{}),
	}
	go o.writeLoop()
	return o
}

func (o *outbound) writeLoop() {
	for {
		select {
		case rec, ok := <-o.send:
			if !ok {
				return
			}
			if err := o.conn.WriteJSON(rec); err != nil {
				return
			}
		case <-o.done:
			return
		}
	}
}

// enqueue is non-blocking. A full buffer means the peer isn't draining its
// socket; the record is dropped rather than stalling the caller, which may
// be holding the broker's state lock.
func (o *outbound) enqueue(rec *wire.Record) {
	select {
	case o.send <- rec:
	case <-o.done:
	default:
	}
}

func (o *outbound) close() {
	select {
	case <-o.done:
	default:
		close(o.done)
	}
	o.conn.Close()
}
