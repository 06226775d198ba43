package chat

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/grantbridge/realtime/internal/config"
	"github.com/grantbridge/realtime/internal/core"
)

// Controller is the websocket transport shell: it accepts connections,
// decodes inbound events, hands them to the router one at a time, and
// delivers the resulting effects.
type Controller struct {
	Router *core.Router

	cfg      *config.Config
	conns    *registry
	validate *validator.Validate
	limiter  *RateLimiter
	upgrader websocket.Upgrader

	// routeMu serializes each router call together with the enqueueing of
	// its effects. Without it, two connections' read pumps could compute
	// effects in one order and enqueue them in the other, leaving a
	// receiver with a stale roster after a newer one.
	routeMu sync.Mutex
}

func NewController(cfg *config.Config, router *core.Router) *Controller {
	ctl := &Controller{
		Router:   router,
		cfg:      cfg,
		conns:    newRegistry(),
		validate: validator.New(),
	}
	if cfg.RateLimit > 0 {
		ctl.limiter = NewRateLimiter(cfg.RateLimit, cfg.RateWindow)
	}
	ctl.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(cfg.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
	return ctl
}

// originAllowed permits same-origin requests (no Origin header) always,
// and cross-origin requests only from the configured list. An empty list
// allows everything, for the topology embedded behind the web app itself.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}

// HandleChat upgrades the request and starts the connection pumps. Each
// socket gets a fresh connection id; the cookie client token is only a
// log correlation handle across reconnects.
func (ctl *Controller) HandleChat(ctx context.Context, c *gin.Context) {
	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "chat").Msg("ws upgrade")
		return
	}

	id := core.ConnID(uuid.NewString())
	log.Info().Str("module", "chat").Str("conn", string(id)).Str("client", c.GetString("client_token")).Msg("new WS connection")

	if ctl.cfg.ReadLimit > 0 {
		ws.SetReadLimit(ctl.cfg.ReadLimit)
	}

	conn := newWSConn(ws, ctl.cfg.SendBuffer)
	ctl.conns.add(id, conn)
	ctl.Router.Connect(id)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, conn)
}

// route runs one router operation and enqueues its effects before any
// other connection's event can interleave, so enqueue order always
// matches mutation order.
func (ctl *Controller) route(op func() []core.Effect) {
	ctl.routeMu.Lock()
	defer ctl.routeMu.Unlock()
	ctl.dispatch(op())
}

// dispatch delivers router effects in order. Unknown targets mean the
// connection already went away; frames for slow consumers are dropped.
// Callers go through route.
func (ctl *Controller) dispatch(effects []core.Effect) {
	for _, ef := range effects {
		b, err := encodeEnvelope(ef.Event, ef.Payload)
		if err != nil {
			log.Error().Err(err).Str("module", "chat").Str("event", ef.Event).Msg("effect marshal")
			continue
		}
		for _, id := range ef.To {
			if conn, ok := ctl.conns.get(id); ok {
				_ = conn.TrySend(b)
			}
		}
	}
}
