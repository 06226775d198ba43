package core

import (
	"sync"

	"github.com/grantbridge/realtime/internal/domain"
)

// ConnID identifies one live transport connection. Assigned by the
// transport shell, unique per socket, never reused while the socket lives.
type ConnID string

// roomState keys members by connection id, not user id: the same logical
// user can reconnect with a new connection before the old one times out.
// order preserves insertion for roster listings.
type roomState struct {
	members map[ConnID]domain.Member
	order   []ConnID
}

// Table is the authoritative in-memory room → members mapping.
// The router is its only writer; the presence aggregator and the REST
// read side only read. Rooms are created lazily and deleted the moment
// their member set becomes empty, so abandoned rooms never leak.
type Table struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomState
}

func NewTable() *Table {
	return &Table{rooms: make(map[domain.RoomID]*roomState)}
}

// AddMember inserts or replaces the entry keyed by id. Re-adding the same
// connection replaces the record in place and keeps its roster position.
func (t *Table) AddMember(room domain.RoomID, id ConnID, m domain.Member) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rs, ok := t.rooms[room]
	if !ok {
		rs = &roomState{members: make(map[ConnID]domain.Member)}
		t.rooms[room] = rs
	}
	if _, exists := rs.members[id]; !exists {
		rs.order = append(rs.order, id)
	}
	rs.members[id] = m
}

// RemoveMember deletes the entry if present. A no-op, not an error, when
// the room or connection is unknown.
func (t *Table) RemoveMember(room domain.RoomID, id ConnID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rs, ok := t.rooms[room]
	if !ok {
		return
	}
	if _, ok := rs.members[id]; !ok {
		return
	}
	delete(rs.members, id)
	for i, c := range rs.order {
		if c == id {
			rs.order = append(rs.order[:i], rs.order[i+1:]...)
			break
		}
	}
	if len(rs.members) == 0 {
		delete(t.rooms, room)
	}
}

// Members returns the insertion-ordered roster for a room, or an empty
// slice for an unknown room. Connection ids stay internal to this package.
func (t *Table) Members(room domain.RoomID) []RoomUser {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rs, ok := t.rooms[room]
	if !ok {
		return []RoomUser{}
	}
	out := make([]RoomUser, 0, len(rs.order))
	for _, id := range rs.order {
		ident := rs.members[id].Identity
		out = append(out, RoomUser{
			ID:   string(ident.UserID),
			Name: ident.DisplayName,
			Role: string(ident.Role),
		})
	}
	return out
}

func (t *Table) MemberCount(room domain.RoomID) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rs, ok := t.rooms[room]
	if !ok {
		return 0
	}
	return len(rs.members)
}

// connections returns the fan-out targets for a room in insertion order.
// Used by the router only; connection ids are never exposed outside core.
func (t *Table) connections(room domain.RoomID) []ConnID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rs, ok := t.rooms[room]
	if !ok {
		return nil
	}
	out := make([]ConnID, len(rs.order))
	copy(out, rs.order)
	return out
}
