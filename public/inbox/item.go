package inbox

import (
	"fmt"

	"github.com/danielstarman/hive/internal/wire"
)

// Kind distinguishes the three conversational record shapes the inbox
// accepts; every other wire record bypasses the inbox entirely.
type Kind int

const (
	KindDM Kind = iota
	KindBroadcast
	KindChannel
)

// Item is one queued conversational record, reduced to what the inbox
// needs to format and, for a correlated DM, reply to.
type Item struct {
	Kind          Kind
	FromName      string
	Channel       string
	Content       string
	CorrelationID string
}

// NewItem converts a wire record into a queueable Item. The second return
// value is false for record types the inbox doesn't handle.
func NewItem(rec *wire.Record) (Item, bool) {
	switch rec.Type {
	case wire.TypeDM:
		return Item{Kind: KindDM, FromName: rec.FromName, Content: rec.Content, CorrelationID: rec.CorrelationID}, true
	case wire.TypeBroadcast:
		return Item{Kind: KindBroadcast, FromName: rec.FromName, Content: rec.Content}, true
	case wire.TypeChannelMessage:
		return Item{Kind: KindChannel, FromName: rec.FromName, Channel: rec.Channel, Content: rec.Content}, true
	default:
		return Item{}, false
	}
}

// Label is the synthetic turn's bracketed prefix.
func (it Item) Label() string {
	switch it.Kind {
	case KindDM:
		return fmt.Sprintf("From %s", it.FromName)
	case KindBroadcast:
		return fmt.Sprintf("Broadcast from %s", it.FromName)
	case KindChannel:
		return fmt.Sprintf("#%s from %s", it.Channel, it.FromName)
	default:
		return it.FromName
	}
}
