package chat

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/grantbridge/realtime/internal/core"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

func encodeEnvelope(event string, payload any) ([]byte, error) {
	return json.Marshal(outEnvelope{Event: event, Data: payload})
}

// handleEvent decodes one inbound frame and routes it. A bad frame only
// ever affects the connection that sent it.
func (ctl *Controller) handleEvent(id core.ConnID, c *wsConn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "chat").Str("conn", string(id)).Msg("bad json")
		ctl.sendValidationError(c, "", "malformed frame")
		return
	}

	switch env.Event {
	case core.EvtJoinRoom:
		ctl.handleJoin(id, c, env.Data)
	case core.EvtLeaveRoom:
		ctl.handleLeave(id, c, env.Data)
	case core.EvtSendMessage:
		ctl.handleSendMessage(id, c, env.Data)
	case core.EvtTypingStart:
		ctl.handleTyping(id, c, env.Data, true)
	case core.EvtTypingStop:
		ctl.handleTyping(id, c, env.Data, false)
	case core.EvtFileUploaded:
		ctl.handleFileUploaded(id, c, env.Data)
	case core.EvtGetPresence:
		ctl.handlePresence(id, c, env.Data)
	default:
		log.Warn().Str("module", "chat").Str("event", env.Event).Msg("unknown event")
	}
}

func (ctl *Controller) handleJoin(id core.ConnID, c *wsConn, raw json.RawMessage) {
	var p core.JoinPayload
	if !ctl.decode(c, core.EvtJoinRoom, raw, &p) {
		return
	}
	ctl.route(func() []core.Effect { return ctl.Router.Join(id, p) })
}

func (ctl *Controller) handleLeave(id core.ConnID, c *wsConn, raw json.RawMessage) {
	var p core.LeavePayload
	if !ctl.decode(c, core.EvtLeaveRoom, raw, &p) {
		return
	}
	ctl.route(func() []core.Effect { return ctl.Router.Leave(id, p) })
}

// handleSendMessage keeps the payload open-ended: roomId and messageId are
// pulled out, everything else passes through to the assembled message.
func (ctl *Controller) handleSendMessage(id core.ConnID, c *wsConn, raw json.RawMessage) {
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		ctl.sendValidationError(c, core.EvtSendMessage, "malformed payload")
		return
	}
	roomID, _ := fields["roomId"].(string)
	if roomID == "" {
		ctl.sendValidationError(c, core.EvtSendMessage, "roomId is required")
		return
	}
	if ctl.limiter != nil && !ctl.limiter.Allow(id) {
		ctl.sendValidationError(c, core.EvtSendMessage, "rate limit exceeded")
		return
	}
	messageID, _ := fields["messageId"].(string)
	delete(fields, "roomId")
	delete(fields, "messageId")

	ctl.route(func() []core.Effect {
		return ctl.Router.SendMessage(id, core.SendMessagePayload{
			RoomID:    roomID,
			MessageID: messageID,
			Fields:    fields,
		})
	})
}

func (ctl *Controller) handleTyping(id core.ConnID, c *wsConn, raw json.RawMessage, active bool) {
	event := core.EvtTypingStart
	if !active {
		event = core.EvtTypingStop
	}
	var p core.TypingPayload
	if !ctl.decode(c, event, raw, &p) {
		return
	}
	// Over-limit typing events are dropped silently; they are transient
	// anyway and an error reply would just add traffic.
	if ctl.limiter != nil && !ctl.limiter.Allow(id) {
		return
	}
	ctl.route(func() []core.Effect { return ctl.Router.Typing(id, p, active) })
}

func (ctl *Controller) handleFileUploaded(id core.ConnID, c *wsConn, raw json.RawMessage) {
	var p core.FileUploadedPayload
	if !ctl.decode(c, core.EvtFileUploaded, raw, &p) {
		return
	}
	ctl.route(func() []core.Effect { return ctl.Router.FileUploaded(id, p) })
}

func (ctl *Controller) handlePresence(id core.ConnID, c *wsConn, raw json.RawMessage) {
	var q core.PresenceQuery
	if !ctl.decode(c, core.EvtGetPresence, raw, &q) {
		return
	}
	ctl.route(func() []core.Effect { return ctl.Router.Presence(id, q) })
}

// decode unmarshals and validates an inbound payload, replying privately
// with a validation-error event on failure.
func (ctl *Controller) decode(c *wsConn, event string, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		log.Error().Err(err).Str("module", "chat").Str("event", event).Msg("bad payload")
		ctl.sendValidationError(c, event, "malformed payload")
		return false
	}
	if err := ctl.validate.Struct(out); err != nil {
		ctl.sendValidationError(c, event, err.Error())
		return false
	}
	return true
}

func (ctl *Controller) sendValidationError(c *wsConn, event, msg string) {
	b, err := encodeEnvelope(core.EvtValidationError, core.ValidationErrorEvent{Event: event, Error: msg})
	if err != nil {
		return
	}
	_ = c.TrySend(b)
}
