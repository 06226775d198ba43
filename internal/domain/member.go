package domain

// Member represents one connection's presence record inside a room.
// No transport or lifecycle logic here; records are immutable, a name or
// role change requires leave+rejoin.
type Member struct {
	Identity Identity
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(identity Identity) Member {
	return Member{Identity: identity}
}
