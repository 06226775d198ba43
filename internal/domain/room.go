package domain

// RoomID is an opaque room identifier assigned by the application layer.
// A room has no record of its own; it exists only while it has members.
type RoomID string
