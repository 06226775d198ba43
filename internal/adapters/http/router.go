package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/grantbridge/realtime/internal/adapters/chat"
	"github.com/grantbridge/realtime/internal/config"
	"github.com/grantbridge/realtime/internal/core"
	"github.com/grantbridge/realtime/internal/domain"
)

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware tags each browser with a stable token used to
// correlate reconnects in logs. It is not an identity; identity arrives
// on join-room and is trusted verbatim.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// SetupRouter builds the standalone transport service: the topology where
// the realtime core runs in its own process behind a configurable origin.
func SetupRouter(ctx context.Context, cfg *config.Config, ctl *chat.Controller, presence *core.Aggregator, table *core.Table) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("WorkspaceSessions", store))
	r.Use(ClientTokenMiddleware())

	log.Info().Str("module", "adapters.http").Msg("router setup")

	Attach(ctx, r, ctl, presence, table)
	return r
}

// Attach registers the realtime routes on a caller-owned router, for the
// topology where the core is embedded in the web application process and
// shares its listener. Both topologies run the identical core.
func Attach(ctx context.Context, r gin.IRouter, ctl *chat.Controller, presence *core.Aggregator, table *core.Table) {
	api := r.Group("/api")

	// GET /api/presence?room=a&room=b returns the read-only multi-room
	// snapshot, the same projection the get-rooms-presence event answers
	// over the socket.
	api.GET("/presence", func(c *gin.Context) {
		rooms := c.QueryArray("room")
		c.JSON(http.StatusOK, gin.H{"rooms": presence.Snapshot(rooms)})
	})

	// GET /api/rooms/:id/members returns the insertion-ordered roster of
	// one room.
	api.GET("/rooms/:id/members", func(c *gin.Context) {
		roomID := domain.RoomID(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{
			"roomId":    roomID,
			"userCount": table.MemberCount(roomID),
			"users":     table.Members(roomID),
		})
	})

	api.GET("/ws/chat", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws chat endpoint hit")
		ctl.HandleChat(ctx, c)
	})
}
