package chat

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/grantbridge/realtime/internal/config"
	"github.com/grantbridge/realtime/internal/core"
)

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestController() (*Controller, *core.Table) {
	table := core.NewTable()
	presence := core.NewAggregator(table)
	router := core.NewRouter(table, presence)
	return NewController(&config.Config{SendBuffer: 64}, router), table
}

// attachConn registers a connection without a live socket; frames land in
// the send queue where tests can read them back.
func attachConn(ctl *Controller, id core.ConnID, buffer int) *wsConn {
	c := newWSConn(nil, buffer)
	ctl.conns.add(id, c)
	ctl.Router.Connect(id)
	return c
}

func recvFrame(t *testing.T, c *wsConn) frame {
	t.Helper()
	select {
	case b := <-c.send:
		var f frame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("bad frame %s: %v", b, err)
		}
		return f
	default:
		t.Fatal("expected a frame, send queue is empty")
	}
	return frame{}
}

func expectNoFrames(t *testing.T, c *wsConn) {
	t.Helper()
	select {
	case b := <-c.send:
		t.Fatalf("unexpected frame: %s", b)
	default:
	}
}

func validationError(t *testing.T, f frame) core.ValidationErrorEvent {
	t.Helper()
	if f.Event != core.EvtValidationError {
		t.Fatalf("expected %s, got %s", core.EvtValidationError, f.Event)
	}
	var ve core.ValidationErrorEvent
	if err := json.Unmarshal(f.Data, &ve); err != nil {
		t.Fatalf("decode validation-error: %v", err)
	}
	return ve
}

func TestHandleEvent_MalformedFrameRepliesPrivately(t *testing.T) {
	ctl, _ := newTestController()
	a := attachConn(ctl, "a", 8)

	ctl.handleEvent("a", a, []byte("{not json"))

	validationError(t, recvFrame(t, a))

	// The connection must survive a bad frame and keep working.
	ctl.handleEvent("a", a, []byte(`{"event":"join-room","data":{"roomId":"r1","userId":"alice","userName":"Alice","userRole":"student"}}`))
	if f := recvFrame(t, a); f.Event != core.EvtRoomUsers {
		t.Errorf("expected a roster after a valid join, got %s", f.Event)
	}
}

func TestHandleEvent_ValidationFailureLeavesOthersUntouched(t *testing.T) {
	ctl, table := newTestController()
	a := attachConn(ctl, "a", 8)
	b := attachConn(ctl, "b", 8)

	ctl.handleEvent("b", b, []byte(`{"event":"join-room","data":{"roomId":"r1","userId":"bob","userName":"Bob","userRole":"corporate"}}`))
	recvFrame(t, b) // bob's private roster

	// Missing userId fails validation before the router is touched.
	ctl.handleEvent("a", a, []byte(`{"event":"join-room","data":{"roomId":"r1","userName":"Alice","userRole":"student"}}`))

	ve := validationError(t, recvFrame(t, a))
	if ve.Event != core.EvtJoinRoom {
		t.Errorf("validation-error must name the offending event, got %q", ve.Event)
	}
	expectNoFrames(t, b)
	if users := table.Members("r1"); len(users) != 1 || users[0].ID != "bob" {
		t.Errorf("rejected join must not mutate membership, got %+v", users)
	}
}

func TestHandleSendMessage_MissingRoomIDRejected(t *testing.T) {
	ctl, _ := newTestController()
	a := attachConn(ctl, "a", 8)

	ctl.handleEvent("a", a, []byte(`{"event":"send-message","data":{"content":"hi"}}`))

	ve := validationError(t, recvFrame(t, a))
	if ve.Event != core.EvtSendMessage {
		t.Errorf("validation-error must name the offending event, got %q", ve.Event)
	}
}

func TestHandleEvent_UnknownEventIsIgnored(t *testing.T) {
	ctl, _ := newTestController()
	a := attachConn(ctl, "a", 8)

	ctl.handleEvent("a", a, []byte(`{"event":"no-such-event","data":{}}`))
	expectNoFrames(t, a)
}

// lastRoster drains a connection's queue and returns the newest roster
// observed for the room.
func lastRoster(t *testing.T, c *wsConn, room string) core.RoomUsersEvent {
	t.Helper()
	var last *core.RoomUsersEvent
	for {
		select {
		case b := <-c.send:
			var f frame
			if err := json.Unmarshal(b, &f); err != nil {
				t.Fatalf("bad frame %s: %v", b, err)
			}
			if f.Event != core.EvtRoomUsers {
				continue
			}
			var ev core.RoomUsersEvent
			if err := json.Unmarshal(f.Data, &ev); err != nil {
				t.Fatalf("decode roster: %v", err)
			}
			if ev.RoomID == room {
				got := ev
				last = &got
			}
		default:
			if last == nil {
				t.Fatalf("no room-users frames observed for %s", room)
			}
			return *last
		}
	}
}

func TestRoute_EnqueueOrderFollowsMutationOrder(t *testing.T) {
	ctl, _ := newTestController()
	a := attachConn(ctl, "a", 2048)
	b := attachConn(ctl, "b", 2048)

	churn := func(id core.ConnID, uid, name, role string) {
		p := core.JoinPayload{RoomID: "r1", UserID: uid, UserName: name, UserRole: role}
		for i := 0; i < 25; i++ {
			ctl.route(func() []core.Effect { return ctl.Router.Join(id, p) })
			ctl.route(func() []core.Effect { return ctl.Router.Leave(id, core.LeavePayload{RoomID: "r1"}) })
		}
		ctl.route(func() []core.Effect { return ctl.Router.Join(id, p) })
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); churn("a", "alice", "Alice", "student") }()
	go func() { defer wg.Done(); churn("b", "bob", "Bob", "corporate") }()
	wg.Wait()

	// Both members end joined, so the very last mutation broadcast the
	// two-member roster to the whole room. A stale one-member roster
	// enqueued after it would mean effect order diverged from mutation
	// order.
	for name, c := range map[string]*wsConn{"a": a, "b": b} {
		if last := lastRoster(t, c, "r1"); len(last.Users) != 2 {
			t.Errorf("conn %s: newest observed roster must list both members, got %+v", name, last.Users)
		}
	}
}
