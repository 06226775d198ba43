package domain

import (
	"encoding/json"
	"time"
)

// createdAtLayout prints an ISO-8601 timestamp with millisecond precision,
// matching what the deployed clients already parse.
const createdAtLayout = "2006-01-02T15:04:05.000Z07:00"

// Message is an assembled chat message as broadcast to a room. The id,
// room and timestamp are fixed fields; everything else the sender supplied
// rides in Extra and is flattened into the wire object unchanged.
type Message struct {
	ID        string
	RoomID    RoomID
	CreatedAt time.Time
	Extra     map[string]any
}

func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	out["id"] = m.ID
	out["roomId"] = string(m.RoomID)
	if !m.CreatedAt.IsZero() {
		out["createdAt"] = m.CreatedAt.UTC().Format(createdAtLayout)
	}
	return json.Marshal(out)
}

func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"].(string); ok {
		m.ID = v
		delete(raw, "id")
	}
	if v, ok := raw["roomId"].(string); ok {
		m.RoomID = RoomID(v)
		delete(raw, "roomId")
	}
	if v, ok := raw["createdAt"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			m.CreatedAt = t
			delete(raw, "createdAt")
		}
	}
	m.Extra = raw
	return nil
}
