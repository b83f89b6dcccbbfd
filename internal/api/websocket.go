package api

import (
	"net/http"
	"time"

	"chathub/internal/auth"
	ch "chathub/internal/channel"
	"chathub/internal/hub"
	m "chathub/internal/message"
	ws "chathub/internal/websocket"
	"chathub/pkg/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict origins before exposing this publicly
		return true
	},
}

// hubStore adapts the channel and message services to the session's Store
// contract: membership facts and durable message writes.
type hubStore struct {
	channels *ch.Service
	messages *m.Service
}

func (s hubStore) IsMember(channelID, userID string) (bool, error) {
	return s.channels.IsMember(channelID, userID)
}

func (s hubStore) InsertMessage(channelID, userID, content string) (*chat.Message, error) {
	return s.messages.CreateMessage(channelID, userID, content)
}

type WebSocketHandler struct {
	hub     hub.Handle
	ids     *hub.IDAllocator
	tokens  *auth.Tokens
	store   ws.Store
	timings ws.Timings
}

func NewWebSocketHandler(db *gorm.DB, hubHandle hub.Handle, ids *hub.IDAllocator, tokens *auth.Tokens, timings ws.Timings) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hubHandle,
		ids:    ids,
		tokens: tokens,
		store: hubStore{
			channels: ch.NewService(db),
			messages: m.NewService(db),
		},
		timings: timings,
	}
}

// HandleWebSocket upgrades the connection and starts a session
// @Summary WebSocket connection endpoint
// @Description Upgrade to WebSocket for real-time chat in one channel; token is passed as a query parameter
// @Tags websocket
// @Param id path string true "Channel ID"
// @Param token query string true "Bearer token"
// @Success 101 {string} string "Switching Protocols"
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 403 {object} ErrorResponse "Not a member of this channel"
// @Router /ws/{id} [get]
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	channelID := c.Param("id")

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "No token provided"})
		return
	}

	claims, err := h.tokens.Validate(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	userID, username, ok := auth.Identity(claims)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	isMember, err := h.store.IsMember(channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this channel"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	session := ws.NewSession(h.hub, h.store, conn, h.ids.Next(), userID, username, channelID, h.timings)
	go session.Run()
}

type WebSocketInfoResponse struct {
	TotalConnections int            `json:"total_connections"`
	ChannelStats     map[string]int `json:"channel_stats"`
	ActiveUsers      []hub.Presence `json:"active_users"`
	ServerTime       string         `json:"server_time"`
}

// GetConnectionInfo reports live hub state
// @Summary Get WebSocket connection info
// @Description Get information about active WebSocket connections
// @Tags websocket
// @Security Bearer
// @Produce json
// @Success 200 {object} WebSocketInfoResponse
// @Router /api/ws/info [get]
func (h *WebSocketHandler) GetConnectionInfo(c *gin.Context) {
	snap := h.hub.Snapshot()

	c.JSON(http.StatusOK, WebSocketInfoResponse{
		TotalConnections: snap.Connections,
		ChannelStats:     snap.Channels,
		ActiveUsers:      snap.Users,
		ServerTime:       time.Now().Format(time.RFC3339),
	})
}

type ChannelStatsResponse struct {
	ChannelID      string         `json:"channel_id"`
	ConnectedUsers []hub.Presence `json:"connected_users"`
	Total          int            `json:"total"`
}

// GetChannelStats reports live connections for one channel
// @Summary Get channel connection stats
// @Description Get the connections currently registered in a channel (members only)
// @Tags websocket
// @Security Bearer
// @Param id path string true "Channel ID"
// @Produce json
// @Success 200 {object} ChannelStatsResponse
// @Failure 403 {object} ErrorResponse "Not a member of this channel"
// @Router /api/ws/channels/{id}/stats [get]
func (h *WebSocketHandler) GetChannelStats(c *gin.Context) {
	userID := c.GetString("user_id")
	channelID := c.Param("id")

	isMember, err := h.store.IsMember(channelID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this channel"})
		return
	}

	users := h.hub.Presence(channelID)
	c.JSON(http.StatusOK, ChannelStatsResponse{
		ChannelID:      channelID,
		ConnectedUsers: users,
		Total:          len(users),
	})
}
