package core

import "github.com/grantbridge/realtime/internal/domain"

// Wire event names. These must match the deployed clients exactly.
const (
	EvtJoinRoom     = "join-room"
	EvtLeaveRoom    = "leave-room"
	EvtSendMessage  = "send-message"
	EvtNewMessage   = "new-message"
	EvtTypingStart  = "typing-start"
	EvtTypingStop   = "typing-stop"
	EvtUserTyping   = "user-typing"
	EvtFileUploaded = "file-uploaded"
	EvtUserJoined   = "user-joined"
	EvtUserLeft     = "user-left"
	EvtRoomUsers    = "room-users"
	EvtGetPresence  = "get-rooms-presence"
	EvtPresence     = "rooms-presence"

	// EvtValidationError is emitted privately to a connection whose event
	// failed validation. Other connections are never affected.
	EvtValidationError = "validation-error"
)

// Effect is one outbound emission computed by the router. The transport
// shell delivers Payload under Event to every connection in To, preserving
// the order effects were returned in.
type Effect struct {
	Event   string
	To      []ConnID
	Payload any
}

// Inbound payloads.

type JoinPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
	UserRole string `json:"userRole" validate:"required"`
}

type LeavePayload struct {
	RoomID string `json:"roomId" validate:"required"`
}

type TypingPayload struct {
	RoomID   string `json:"roomId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	UserName string `json:"userName" validate:"required"`
}

// SendMessagePayload carries the routing fields the router cares about.
// Everything else the client sent stays in Fields and is passed through
// to the assembled message verbatim.
type SendMessagePayload struct {
	RoomID    string
	MessageID string
	Fields    map[string]any
}

type FileUploadedPayload struct {
	RoomID  string         `json:"roomId" validate:"required"`
	Message domain.Message `json:"message"`
}

type PresenceQuery struct {
	RoomIDs []string `json:"roomIds" validate:"required"`
}

// Outbound payloads.

// UserEvent is the payload of user-joined and user-left.
type UserEvent struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	UserRole string `json:"userRole"`
}

// RoomUser is a read-only roster view (no connection ids).
type RoomUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type RoomUsersEvent struct {
	RoomID string     `json:"roomId"`
	Users  []RoomUser `json:"users"`
}

type TypingEvent struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

type PresenceEvent struct {
	Rooms map[string]RoomPresence `json:"rooms"`
}

type ValidationErrorEvent struct {
	Event string `json:"event"`
	Error string `json:"error"`
}
