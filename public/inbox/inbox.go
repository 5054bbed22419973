// Package inbox serializes one agent's inbound dm/broadcast/channel_message
// records into its LLM-driven conversation one at a time, and binds a
// correlated DM to the exactly-one dm_response it produces.
package inbox

import (
	"fmt"
	"time"

	"github.com/danielstarman/hive/internal/wire"
)

const settleDelay = 300 * time.Millisecond

// Inbox runs its own single goroutine actor loop; all public methods are
// safe to call concurrently and simply hand a command to that loop.
type Inbox struct {
	runtime Runtime
	send    func(*wire.Record) error

	cmds chan command
	stop chan struct{}
}

type command struct {
	kind     cmdKind
	item     Item
	messages []Message
}

type cmdKind int

const (
	cmdEnqueue cmdKind = iota
	cmdAgentStart
	cmdAgentEnd
)

type pendingReply struct {
	to            string
	correlationID string
}

// New starts an inbox. send is used to emit dm_response records (normally
// the owning Session's Send method).
func New(runtime Runtime, send func(*wire.Record) error) *Inbox {
	ib := &Inbox{
		runtime: runtime,
		send:    send,
		cmds:    make(chan command, 64),
		stop:    make(chan struct{}),
	}
	go ib.loop()
	return ib
}

// Enqueue offers an inbound record to the inbox. Records the inbox doesn't
// handle (anything but dm/broadcast/channel_message) are dropped silently.
func (ib *Inbox) Enqueue(rec *wire.Record) {
	item, ok := NewItem(rec)
	if !ok {
		return
	}
	select {
	case ib.cmds <- command{kind: cmdEnqueue, item: item}:
	case <-ib.stop:
	}
}

// AgentStart signals that the host LLM began a turn.
func (ib *Inbox) AgentStart() {
	select {
	case ib.cmds <- command{kind: cmdAgentStart}:
	case <-ib.stop:
	}
}

// AgentEnd signals that the host LLM's turn finished, carrying the
// conversation log so far.
func (ib *Inbox) AgentEnd(messages []Message) {
	select {
	case ib.cmds <- command{kind: cmdAgentEnd, messages: messages}:
	case <-ib.stop:
	}
}

// Close stops the inbox's loop. Queued items are discarded.
func (ib *Inbox) Close() {
	select {
	case <-ib.stop:
	default:
		close(ib.stop)
	}
}

func (ib *Inbox) loop() {
	var queue []Item
	turnActive := false
	var pending *pendingReply
	var settleTimer *time.Timer
	var settleC <-chan time.Time

	scheduleSettle := func() {
		if settleTimer != nil {
			return
		}
		settleTimer = time.NewTimer(settleDelay)
		settleC = settleTimer.C
	}
	cancelSettle := func() {
		if settleTimer == nil {
			return
		}
		settleTimer.Stop()
		settleTimer = nil
		settleC = nil
	}

	dispatch := func() {
		if len(queue) == 0 {
			return
		}
		item := queue[0]
		queue = queue[1:]

		content := fmt.Sprintf("[%s]: %s", item.Label(), item.Content)

		err := ib.runtime.Inject(content)
		if err != nil {
			err = ib.runtime.InjectFollowUp(content)
		}
		if err != nil {
			if item.Kind == KindDM && item.CorrelationID != "" {
				ib.send(&wire.Record{
					Type:          wire.TypeDMResponse,
					To:            item.FromName,
					CorrelationID: item.CorrelationID,
					Content:       "(failed to deliver message to agent)",
				})
			}
			if len(queue) > 0 {
				scheduleSettle()
			}
			return
		}

		if item.Kind == KindDM && item.CorrelationID != "" {
			pending = &pendingReply{to: item.FromName, correlationID: item.CorrelationID}
		}
	}

	for {
		select {
		case <-ib.stop:
			cancelSettle()
			return

		case cmd := <-ib.cmds:
			switch cmd.kind {
			case cmdEnqueue:
				queue = append(queue, cmd.item)
				if !turnActive {
					scheduleSettle()
				}

			case cmdAgentStart:
				turnActive = true
				cancelSettle()

			case cmdAgentEnd:
				turnActive = false
				if pending != nil {
					reply := pending
					pending = nil
					ib.send(&wire.Record{
						Type:          wire.TypeDMResponse,
						To:            reply.to,
						CorrelationID: reply.correlationID,
						Content:       extractReply(cmd.messages),
					})
				}
				if len(queue) > 0 {
					scheduleSettle()
				}
			}

		case <-settleC:
			settleTimer = nil
			settleC = nil
			dispatch()
		}
	}
}
