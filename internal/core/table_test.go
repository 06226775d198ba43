package core

import (
	"testing"

	"github.com/grantbridge/realtime/internal/domain"
)

func member(id, name, role string) domain.Member {
	return domain.NewMember(domain.Identity{
		UserID:      domain.UserID(id),
		DisplayName: name,
		Role:        domain.Role(role),
	})
}

func TestTable_MembersOrderedByInsertion(t *testing.T) {
	tbl := NewTable()
	tbl.AddMember("r1", "c1", member("alice", "Alice", "student"))
	tbl.AddMember("r1", "c2", member("bob", "Bob", "corporate"))
	tbl.AddMember("r1", "c3", member("carol", "Carol", "student"))

	users := tbl.Members("r1")
	if len(users) != 3 {
		t.Fatalf("expected 3 members, got %d", len(users))
	}
	want := []string{"alice", "bob", "carol"}
	for i, id := range want {
		if users[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, users[i].ID)
		}
	}
}

func TestTable_ReAddReplacesKeepingPosition(t *testing.T) {
	tbl := NewTable()
	tbl.AddMember("r1", "c1", member("alice", "Alice", "student"))
	tbl.AddMember("r1", "c2", member("bob", "Bob", "corporate"))
	tbl.AddMember("r1", "c1", member("alice", "Alice Updated", "student"))

	users := tbl.Members("r1")
	if len(users) != 2 {
		t.Fatalf("expected 2 members after re-add, got %d", len(users))
	}
	if users[0].Name != "Alice Updated" {
		t.Errorf("expected replaced record at original position, got %q", users[0].Name)
	}
}

func TestTable_RemoveUnknownIsNoop(t *testing.T) {
	tbl := NewTable()
	tbl.RemoveMember("nope", "c1")

	tbl.AddMember("r1", "c1", member("alice", "Alice", "student"))
	tbl.RemoveMember("r1", "c2")
	if n := tbl.MemberCount("r1"); n != 1 {
		t.Errorf("expected 1 member, got %d", n)
	}
}

func TestTable_EmptyRoomIsGarbageCollected(t *testing.T) {
	tbl := NewTable()
	tbl.AddMember("r1", "c1", member("alice", "Alice", "student"))
	tbl.RemoveMember("r1", "c1")

	if len(tbl.rooms) != 0 {
		t.Fatalf("expected empty room to be deleted, %d rooms retained", len(tbl.rooms))
	}
	users := tbl.Members("r1")
	if users == nil || len(users) != 0 {
		t.Errorf("expected empty non-nil roster for collected room, got %v", users)
	}
}

func TestTable_UnknownRoomReturnsEmptyRoster(t *testing.T) {
	tbl := NewTable()
	users := tbl.Members("ghost")
	if users == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(users) != 0 {
		t.Errorf("expected no members, got %d", len(users))
	}
}
