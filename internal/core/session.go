package core

import "github.com/grantbridge/realtime/internal/domain"

// Session tracks the single room a connection currently occupies and the
// identity bound to it. A connection is in at most one room at a time;
// joining a new room implicitly leaves the old one. Sessions are owned by
// the router and only touched under its lock.
type Session struct {
	id       ConnID
	identity *domain.Identity
	room     domain.RoomID // "" means Unjoined
}

// Bind caches the identity supplied on join. The cached copy is what a
// later implicit leave reports to the departed room.
func (s *Session) Bind(ident domain.Identity) {
	s.identity = &ident
}

func (s *Session) Identity() (domain.Identity, bool) {
	if s.identity == nil {
		return domain.Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) Room() domain.RoomID { return s.room }

func (s *Session) SetRoom(room domain.RoomID) { s.room = room }

func (s *Session) InRoom() bool { return s.room != "" }
