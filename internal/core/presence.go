package core

import "github.com/grantbridge/realtime/internal/domain"

// Aggregator is the stateless read-side projection answering "for this
// set of rooms, who is present". It only reads the membership table.
type Aggregator struct {
	table *Table
}

func NewAggregator(table *Table) *Aggregator {
	return &Aggregator{table: table}
}

type RoomPresence struct {
	UserCount int        `json:"userCount"`
	Users     []RoomUser `json:"users"`
}

// Snapshot projects the requested rooms. Rooms with zero members are left
// out of the result entirely, unlike Table.Members which returns an empty
// roster; callers rely on the omission to cheaply tell which of their
// rooms are live.
func (a *Aggregator) Snapshot(roomIDs []string) map[string]RoomPresence {
	out := make(map[string]RoomPresence, len(roomIDs))
	for _, rid := range roomIDs {
		users := a.table.Members(domain.RoomID(rid))
		if len(users) == 0 {
			continue
		}
		out[rid] = RoomPresence{UserCount: len(users), Users: users}
	}
	return out
}
