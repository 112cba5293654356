package hub

import (
	"encoding/json"
	"fmt"
)

// EventKind enumerates the inbound events a transport can report.
type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventDisconnect
	EventMessage
	EventGetUsers
	EventTransportError
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventDisconnect:
		return "disconnect"
	case EventMessage:
		return "message"
	case EventGetUsers:
		return "get_users"
	case EventTransportError:
		return "transport_error"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a single inbound occurrence for one connection. Payload is only
// set for EventMessage and Err only for EventTransportError.
type Event struct {
	Kind    EventKind
	ConnID  string
	Payload json.RawMessage
	Err     error
}

func Connect(id string) Event    { return Event{Kind: EventConnect, ConnID: id} }
func Disconnect(id string) Event { return Event{Kind: EventDisconnect, ConnID: id} }
func GetUsers(id string) Event   { return Event{Kind: EventGetUsers, ConnID: id} }

func Message(id string, payload json.RawMessage) Event {
	return Event{Kind: EventMessage, ConnID: id, Payload: payload}
}

func TransportFailure(id string, err error) Event {
	return Event{Kind: EventTransportError, ConnID: id, Err: err}
}

// Outbound event names, shared with clients.
const (
	NameStatus   = "status"
	NameResponse = "response"
	NameError    = "error"
	NameUserList = "user_list"
)

// Presence types carried by a status payload.
const (
	StatusJoin  = "join"
	StatusLeave = "leave"
)

// Envelope is the wire frame exchanged in both directions.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// InboundEnvelope is the decoding side of Envelope; Data is kept raw so that
// the Sanitizer can decide whether it is well formed.
type InboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type StatusPayload struct {
	Msg       string `json:"msg"`
	Type      string `json:"type"`
	UserCount int    `json:"user_count"`
}

type ResponsePayload struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id"`
}

type ErrorPayload struct {
	Msg string `json:"msg"`
}

type UserEntry struct {
	ID       string `json:"id"`
	Nickname string `json:"nickname"`
}

type UserListPayload struct {
	Users []UserEntry `json:"users"`
	Count int         `json:"count"`
}

// ChatMessage is a validated, sanitized message on its way to broadcast.
// It is never stored.
type ChatMessage struct {
	Text      string
	Username  string
	Timestamp string
	SenderID  string
}

func (m ChatMessage) payload() ResponsePayload {
	return ResponsePayload{
		Message:   m.Text,
		Username:  m.Username,
		Timestamp: m.Timestamp,
		UserID:    ShortID(m.SenderID),
	}
}

const shortIDLength = 8

// ShortID returns the public form of a connection identifier.
func ShortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// GuestName is the display name of a participant that never chose one.
func GuestName(id string) string {
	return "Guest-" + ShortID(id)
}
