// Package wire defines the tagged message vocabulary exchanged between an
// agent and the broker over a single bidirectional WebSocket stream. Every
// frame carries exactly one Record; the Type field selects which of the
// remaining, mostly-optional fields are meaningful — the same flat-struct
// discipline the teacher repo uses for its broker.Message and
// client.BrokerMessage types, generalized to every record this protocol
// defines instead of a single generic payload envelope.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/danielstarman/hive/public/model"
)

// Type tags. Agent -> Broker records are listed first, then Broker -> Agent.
const (
	TypeRegister       = "register"
	TypeDM             = "dm"
	TypeDMResponse     = "dm_response"
	TypeBroadcast      = "broadcast"
	TypeChannelCreate  = "channel_create"
	TypeChannelJoin    = "channel_join"
	TypeChannelLeave   = "channel_leave"
	TypeChannelSend    = "channel_send"
	TypeListAgents     = "list_agents"
	TypeListChannels   = "list_channels"
	TypeReserve        = "reserve"
	TypeRelease        = "release"
	TypeRename         = "rename"
	TypePresenceUpdate = "presence_update"
	TypeStatusUpdate   = "status_update"
	TypeHeartbeat      = "heartbeat"

	TypeRegistered           = "registered"
	TypeAgentJoined          = "agent_joined"
	TypeAgentLeft            = "agent_left"
	TypeAgentRenamed         = "agent_renamed"
	TypeChannelCreated       = "channel_created"
	TypeChannelJoined        = "channel_joined"
	TypeChannelLeft          = "channel_left"
	TypeChannelMessage       = "channel_message"
	TypeChannelSent          = "channel_sent"
	TypeAgentList            = "agent_list"
	TypeChannelList          = "channel_list"
	TypeReservationsUpdated  = "reservations_updated"
	TypeStatusChanged        = "status_changed"
	TypeError                = "error"
	TypeHeartbeatAck         = "heartbeat_ack"
)

// Record is the single wire-level message shape. Each protocol tag uses a
// subset of these fields; unused fields are omitted from the JSON encoding.
type Record struct {
	Type string `json:"type"`

	// register / registered / agent identity fields
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	ParentID    string `json:"parentId,omitempty"`
	Cwd         string `json:"cwd,omitempty"`
	Interactive bool   `json:"interactive,omitempty"`

	// dm / dm_response / broadcast
	To            string `json:"to,omitempty"`
	From          string `json:"from,omitempty"`
	FromName      string `json:"fromName,omitempty"`
	Content       string `json:"content,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`

	// channel operations
	Channel   string `json:"channel,omitempty"`
	By        string `json:"by,omitempty"`
	AgentID   string `json:"agentId,omitempty"`
	AgentName string `json:"agentName,omitempty"`

	// rename
	OldName string `json:"oldName,omitempty"`
	NewName string `json:"newName,omitempty"`

	// reservations
	Paths  []string `json:"paths,omitempty"`
	Reason string   `json:"reason,omitempty"`

	// presence / status
	Status         model.Status `json:"status,omitempty"`
	StatusMessage  string       `json:"statusMessage,omitempty"`
	LastActivityAt string       `json:"lastActivityAt,omitempty"`

	// snapshots
	Agent        *model.AgentInfo  `json:"agent,omitempty"`
	Agents       []model.AgentInfo `json:"agents,omitempty"`
	Channels     []model.Channel   `json:"channels,omitempty"`
	Reservations model.ReservationMap `json:"reservations,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// Validate checks that a decoded record at least carries a type tag.
// Per-tag required-field checks live with the broker handler for that tag,
// since what counts as "required" is a routing decision, not a wire-format
// one (an unparseable frame is a protocol error; a missing "to" on a dm is
// a routing error — the base spec treats these as distinct taxonomies).
func (r *Record) Validate() error {
	if r.Type == "" {
		return fmt.Errorf("record: missing type tag")
	}
	return nil
}

// ToJSON serializes the record.
func (r *Record) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON deserializes a record, returning an error the caller should
// surface as an "Invalid JSON" protocol error rather than a disconnect.
func FromJSON(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// NewError builds an error record, echoing correlationID when the
// offending record carried one (currently only dm/dm_response do).
func NewError(message, correlationID string) *Record {
	return &Record{Type: TypeError, Message: message, CorrelationID: correlationID}
}
