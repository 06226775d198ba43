package core

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grantbridge/realtime/internal/domain"
)

// Router is the protocol core: the sole entry point for state-changing
// events. It owns the membership table and the per-connection sessions,
// processes one event at a time under a single lock, and returns the
// outbound emissions for the transport shell to deliver. Nothing here
// blocks on I/O.
type Router struct {
	mu       sync.Mutex
	table    *Table
	presence *Aggregator
	sessions map[ConnID]*Session

	// Injected for tests; defaults are real time and uuid-backed ids.
	now   func() time.Time
	newID func() string
}

func NewRouter(table *Table, presence *Aggregator) *Router {
	return &Router{
		table:    table,
		presence: presence,
		sessions: make(map[ConnID]*Session),
		now:      time.Now,
		newID:    NewMessageID,
	}
}

// NewMessageID returns a server-assigned message id. The msg_ prefix lets
// clients tell server-generated ids from their own optimistic ones.
func NewMessageID() string {
	return "msg_" + uuid.NewString()
}

// Connect registers a fresh transport connection with an Unjoined session.
func (r *Router) Connect(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[id]; ok {
		return
	}
	r.sessions[id] = &Session{id: id}
	log.Info().Str("module", "core.router").Str("conn", string(id)).Msg("session opened")
}

// Join moves the connection into a room. If the session already occupies
// another room this atomically leaves it first, notifying that room with
// the previously cached identity (best-effort when none was cached).
func (r *Router) Join(id ConnID, p JoinPayload) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.session(id)

	var effects []Effect
	if old := sess.Room(); old != "" {
		r.table.RemoveMember(old, id)
		left := UserEvent{RoomID: string(old)}
		if ident, ok := sess.Identity(); ok {
			left.UserID = string(ident.UserID)
			left.UserName = ident.DisplayName
			left.UserRole = string(ident.Role)
		}
		if rest := r.table.connections(old); len(rest) > 0 {
			effects = append(effects, Effect{Event: EvtUserLeft, To: rest, Payload: left})
		}
		log.Info().Str("module", "core.router").Str("conn", string(id)).Str("from_room", string(old)).Msg("implicit leave on join")
	}

	ident := domain.Identity{
		UserID:      domain.UserID(p.UserID),
		DisplayName: p.UserName,
		Role:        domain.Role(p.UserRole),
	}
	sess.Bind(ident)
	room := domain.RoomID(p.RoomID)
	r.table.AddMember(room, id, domain.NewMember(ident))
	sess.SetRoom(room)

	roster := RoomUsersEvent{RoomID: p.RoomID, Users: r.table.Members(room)}
	others := exclude(r.table.connections(room), id)
	if len(others) > 0 {
		effects = append(effects, Effect{Event: EvtUserJoined, To: others, Payload: UserEvent{
			RoomID:   p.RoomID,
			UserID:   p.UserID,
			UserName: p.UserName,
			UserRole: p.UserRole,
		}})
	}
	// The roster goes out twice on purpose: privately first so the joiner
	// has the full list immediately, then to the rest of the room so
	// everyone converges on the same state.
	effects = append(effects, Effect{Event: EvtRoomUsers, To: []ConnID{id}, Payload: roster})
	if len(others) > 0 {
		effects = append(effects, Effect{Event: EvtRoomUsers, To: others, Payload: roster})
	}

	log.Info().Str("module", "core.router").Str("conn", string(id)).Str("room", p.RoomID).Str("user", p.UserID).Msg("joined room")
	return effects
}

// Leave removes the connection from the named room. Unknown rooms are a
// no-op, not an error.
func (r *Router) Leave(id ConnID, p LeavePayload) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess := r.session(id)
	log.Info().Str("module", "core.router").Str("conn", string(id)).Str("room", p.RoomID).Msg("left room")
	return r.departRoom(sess, domain.RoomID(p.RoomID))
}

// departRoom removes sess from room and computes the departure emissions:
// user-left to the remaining members, then the refreshed roster to the
// whole room. Caller holds r.mu.
func (r *Router) departRoom(sess *Session, room domain.RoomID) []Effect {
	r.table.RemoveMember(room, sess.id)
	// Only reset the session when the named room is the one it occupies;
	// clearing it on a mismatched leave would strand the real membership
	// record until disconnect.
	if sess.Room() == room {
		sess.SetRoom("")
	}
	ident, ok := sess.Identity()
	if !ok {
		return nil
	}
	remaining := r.table.connections(room)
	if len(remaining) == 0 {
		return nil
	}
	left := UserEvent{
		RoomID:   string(room),
		UserID:   string(ident.UserID),
		UserName: ident.DisplayName,
		UserRole: string(ident.Role),
	}
	roster := RoomUsersEvent{RoomID: string(room), Users: r.table.Members(room)}
	return []Effect{
		{Event: EvtUserLeft, To: remaining, Payload: left},
		{Event: EvtRoomUsers, To: remaining, Payload: roster},
	}
}

// SendMessage assembles the authoritative message record and broadcasts it
// to every connection in the room, sender included: the sender waits for
// the echo so its UI reflects the server id and timestamp. Sender
// membership is deliberately not checked, which permits system senders
// that are not room members. No persistence happens here.
func (r *Router) SendMessage(id ConnID, p SendMessagePayload) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgID := p.MessageID
	if msgID == "" {
		msgID = r.newID()
	}
	msg := domain.Message{
		ID:        msgID,
		RoomID:    domain.RoomID(p.RoomID),
		CreatedAt: r.now(),
		Extra:     p.Fields,
	}
	targets := r.table.connections(domain.RoomID(p.RoomID))
	log.Debug().Str("module", "core.router").Str("conn", string(id)).Str("room", p.RoomID).Str("msg", msgID).Int("targets", len(targets)).Msg("message broadcast")
	if len(targets) == 0 {
		return nil
	}
	return []Effect{{Event: EvtNewMessage, To: targets, Payload: msg}}
}

// Typing relays a transient typing notification to everyone in the room
// except the sender. No membership mutation; staleness after a silent
// disconnect is accepted, no timeout is enforced here.
func (r *Router) Typing(id ConnID, p TypingPayload, active bool) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	targets := exclude(r.table.connections(domain.RoomID(p.RoomID)), id)
	if len(targets) == 0 {
		return nil
	}
	return []Effect{{Event: EvtUserTyping, To: targets, Payload: TypingEvent{
		RoomID:   p.RoomID,
		UserID:   p.UserID,
		UserName: p.UserName,
		IsTyping: active,
	}}}
}

// FileUploaded broadcasts a message the caller already assembled, e.g.
// after an out-of-band upload. Same fan-out as SendMessage.
func (r *Router) FileUploaded(id ConnID, p FileUploadedPayload) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	targets := r.table.connections(domain.RoomID(p.RoomID))
	if len(targets) == 0 {
		return nil
	}
	return []Effect{{Event: EvtNewMessage, To: targets, Payload: p.Message}}
}

// Presence answers a multi-room snapshot query privately to the requester.
func (r *Router) Presence(id ConnID, q PresenceQuery) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.presence.Snapshot(q.RoomIDs)
	return []Effect{{Event: EvtPresence, To: []ConnID{id}, Payload: PresenceEvent{Rooms: snap}}}
}

// Disconnect runs the connection's cleanup exactly once, even if the
// shell reports the same socket closing twice. Equivalent to an explicit
// leave of the current room.
func (r *Router) Disconnect(id ConnID) []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	log.Info().Str("module", "core.router").Str("conn", string(id)).Msg("session closed")
	if !sess.InRoom() {
		return nil
	}
	return r.departRoom(sess, sess.Room())
}

// session returns the connection's session, creating one for shells that
// skipped Connect. Caller holds r.mu.
func (r *Router) session(id ConnID) *Session {
	sess, ok := r.sessions[id]
	if !ok {
		sess = &Session{id: id}
		r.sessions[id] = sess
	}
	return sess
}

func exclude(ids []ConnID, skip ConnID) []ConnID {
	out := ids[:0:0]
	for _, c := range ids {
		if c != skip {
			out = append(out, c)
		}
	}
	return out
}
