package inbox

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danielstarman/hive/internal/wire"
)

// fakeRuntime simulates a host LLM runtime. onInject, if set, lets a test
// drive the inbox's AgentStart/AgentEnd lifecycle the way a real host would
// as part of handling an injected turn.
type fakeRuntime struct {
	mu           sync.Mutex
	injected     []string
	failInject   int
	failFollowUp bool
	onInject     func(content string)
}

func (f *fakeRuntime) Inject(content string) error {
	f.mu.Lock()
	fail := f.failInject > 0
	if fail {
		f.failInject--
	} else {
		f.injected = append(f.injected, content)
	}
	f.mu.Unlock()
	if fail {
		return errors.New("inject failed")
	}
	if f.onInject != nil {
		f.onInject(content)
	}
	return nil
}

func (f *fakeRuntime) InjectFollowUp(content string) error {
	if f.failFollowUp {
		return errors.New("follow-up failed")
	}
	f.mu.Lock()
	f.injected = append(f.injected, content)
	f.mu.Unlock()
	if f.onInject != nil {
		f.onInject(content)
	}
	return nil
}

func (f *fakeRuntime) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.injected...)
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration, what string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestInboxDispatchAndCorrelatedReply(t *testing.T) {
	var ib *Inbox
	rt := &fakeRuntime{onInject: func(string) { ib.AgentStart() }}
	sendCh := make(chan *wire.Record, 10)
	ib = New(rt, func(rec *wire.Record) error { sendCh <- rec; return nil })
	defer ib.Close()

	ib.Enqueue(&wire.Record{Type: wire.TypeDM, FromName: "hub", Content: "What did you find?", CorrelationID: "c1"})

	waitFor(t, func() bool { return len(rt.snapshot()) == 1 }, time.Second, "injection")
	if got := rt.snapshot()[0]; got != "[From hub]: What did you find?" {
		t.Fatalf("injected content = %q", got)
	}

	ib.AgentEnd([]Message{
		{Role: "assistant", Content: []ContentBlock{{Type: "text", Text: "Found 12 files"}}},
	})

	select {
	case rec := <-sendCh:
		if rec.Type != wire.TypeDMResponse || rec.To != "hub" || rec.CorrelationID != "c1" || rec.Content != "Found 12 files" {
			t.Fatalf("unexpected dm_response: %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no dm_response sent")
	}
}

func TestInboxFIFOWhileTurnActive(t *testing.T) {
	dispatched := make(chan struct{}, 10)
	rt := &fakeRuntime{onInject: func(string) { dispatched <- struct{}{} }}
	sendCh := make(chan *wire.Record, 10)
	ib := New(rt, func(rec *wire.Record) error { sendCh <- rec; return nil })
	defer ib.Close()

	ib.AgentStart() // a turn is already in progress when both DMs arrive
	ib.Enqueue(&wire.Record{Type: wire.TypeDM, FromName: "a", Content: "first", CorrelationID: "c1"})
	ib.Enqueue(&wire.Record{Type: wire.TypeDM, FromName: "b", Content: "second", CorrelationID: "c2"})

	time.Sleep(350 * time.Millisecond)
	if len(rt.snapshot()) != 0 {
		t.Fatalf("dispatched %d items while turn active, want 0", len(rt.snapshot()))
	}

	ib.AgentEnd(nil) // ends the pre-existing turn; settle delay then dispatches "first"
	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("first item never dispatched")
	}
	if got := rt.snapshot(); len(got) != 1 || got[0] != "[From a]: first" {
		t.Fatalf("first dispatched = %v", got)
	}

	ib.AgentStart()  // host begins processing "first"
	ib.AgentEnd(nil) // host finishes processing "first"; replies, then settles "second"

	select {
	case rec := <-sendCh:
		if rec.CorrelationID != "c1" {
			t.Fatalf("expected reply to c1 first, got %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no reply for first DM")
	}

	select {
	case <-dispatched:
	case <-time.After(time.Second):
		t.Fatal("second item never dispatched")
	}
	if got := rt.snapshot(); len(got) != 2 || got[1] != "[From b]: second" {
		t.Fatalf("second dispatched = %v", got)
	}
}

func TestInboxSettleCancelOnAgentStart(t *testing.T) {
	ib := New(&fakeRuntime{}, func(*wire.Record) error { return nil })
	defer ib.Close()

	ib.Enqueue(&wire.Record{Type: wire.TypeBroadcast, FromName: "hub", Content: "hi"})
	time.Sleep(100 * time.Millisecond) // well before the 300ms settle delay fires
	ib.AgentStart()                    // must cancel the pending settle dispatch
	time.Sleep(400 * time.Millisecond)

	rt := ib.runtime.(*fakeRuntime)
	if len(rt.snapshot()) != 0 {
		t.Fatalf("dispatched %d items after settle was canceled, want 0", len(rt.snapshot()))
	}
}

func TestInboxRetryThenFallback(t *testing.T) {
	rt := &fakeRuntime{failInject: 1, failFollowUp: true}
	sendCh := make(chan *wire.Record, 10)
	ib := New(rt, func(rec *wire.Record) error { sendCh <- rec; return nil })
	defer ib.Close()

	ib.Enqueue(&wire.Record{Type: wire.TypeDM, FromName: "hub", Content: "hello", CorrelationID: "c1"})

	select {
	case rec := <-sendCh:
		if rec.Content != "(failed to deliver message to agent)" || rec.CorrelationID != "c1" {
			t.Fatalf("unexpected fallback reply: %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no fallback dm_response sent")
	}
}

func TestInboxRetrySucceeds(t *testing.T) {
	var ib *Inbox
	rt := &fakeRuntime{failInject: 1, onInject: func(string) { ib.AgentStart() }}
	sendCh := make(chan *wire.Record, 10)
	ib = New(rt, func(rec *wire.Record) error { sendCh <- rec; return nil })
	defer ib.Close()

	ib.Enqueue(&wire.Record{Type: wire.TypeDM, FromName: "hub", Content: "hello", CorrelationID: "c1"})
	waitFor(t, func() bool { return len(rt.snapshot()) == 1 }, time.Second, "retried injection")

	ib.AgentEnd([]Message{{Role: "assistant", Content: []ContentBlock{{Type: "text", Text: "ok"}}}})
	select {
	case rec := <-sendCh:
		if rec.Content != "ok" {
			t.Fatalf("unexpected reply after retry success: %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no dm_response after successful retry")
	}
}

func TestExtractReplyFallback(t *testing.T) {
	if got := extractReply(nil); got != fallbackNoText {
		t.Fatalf("extractReply(nil) = %q", got)
	}
	msgs := []Message{{Role: "assistant", Content: []ContentBlock{{Type: "text", Text: "  "}}}}
	if got := extractReply(msgs); got != fallbackNoText {
		t.Fatalf("extractReply(blank text) = %q", got)
	}
}
