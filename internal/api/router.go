package api

import (
	"chathub/internal/auth"
	"chathub/internal/hub"
	"chathub/internal/middleware"
	"chathub/internal/websocket"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Router struct {
	ah *AuthHandlers
	ch *ChannelHandlers
	ih *InvitationHandlers
	uh *UserHandlers
	wh *WebSocketHandler
	am *auth.Middleware
}

func NewRouter(db *gorm.DB, hubHandle hub.Handle, ids *hub.IDAllocator, tokens *auth.Tokens) *Router {
	return &Router{
		ah: NewAuthHandlers(db, tokens),
		ch: NewChannelHandlers(db, hubHandle),
		ih: NewInvitationHandlers(db),
		uh: NewUserHandlers(db),
		wh: NewWebSocketHandler(db, hubHandle, ids, tokens, websocket.DefaultTimings()),
		am: auth.NewMiddleware(tokens),
	}
}

func (r *Router) RegisterRoutes(router *gin.Engine) {
	router.GET("/hc", HealthCheckHandler)

	authLimiter := middleware.NewIPRateLimiter(middleware.StrictRateLimit)
	{
		public := router.Group("/api/auth")
		public.Use(middleware.RateLimit(authLimiter))
		public.POST("/register", r.ah.RegisterHandler)
		public.POST("/login", r.ah.LoginHandler)
	}

	{
		protected := router.Group("/api")
		protected.Use(r.am.RequireAuth())
		protected.GET("/channels", r.ch.ListChannelsHandler)
		protected.POST("/channels", r.ch.CreateChannelHandler)
		protected.GET("/channels/:id", r.ch.GetChannelHandler)
		protected.GET("/channels/:id/messages", r.ch.GetChannelMessagesHandler)
		protected.POST("/channels/:id/invite", r.ih.InviteHandler)
		protected.GET("/invitations", r.ih.ListInvitationsHandler)
		protected.POST("/invitations/:id/respond", r.ih.RespondHandler)
		protected.PATCH("/user", r.uh.UpdateUserHandler)
		protected.DELETE("/user", r.uh.DeleteUserHandler)
		protected.GET("/ws/info", r.wh.GetConnectionInfo)
		protected.GET("/ws/channels/:id/stats", r.wh.GetChannelStats)
	}

	router.GET("/ws/:id", r.wh.HandleWebSocket)
}

func HealthCheckHandler(c *gin.Context) {
	c.String(200, "Running")
}
