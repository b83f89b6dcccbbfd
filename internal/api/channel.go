package api

import (
	"errors"
	"net/http"
	"time"

	ch "chathub/internal/channel"
	"chathub/internal/hub"
	m "chathub/internal/message"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ChannelHandlers struct {
	channels *ch.Service
	messages *m.Service
	hub      hub.Handle
}

func NewChannelHandlers(db *gorm.DB, hubHandle hub.Handle) *ChannelHandlers {
	return &ChannelHandlers{
		channels: ch.NewService(db),
		messages: m.NewService(db),
		hub:      hubHandle,
	}
}

type CreateChannelInput struct {
	Name string `json:"name" binding:"required" example:"general"`
}

type ChannelResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Role      string    `json:"role"`
}

type ChannelWithMembersResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedBy string          `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	Members   []ch.MemberInfo `json:"members"`
}

// CreateChannelHandler creates a channel owned by the caller
// @Summary Create a channel
// @Description Create a channel; the creator becomes its admin
// @Tags Channels
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body CreateChannelInput true "Channel request"
// @Success 200 {object} ChannelResponse "Channel created"
// @Failure 400 {object} ErrorResponse "Bad request"
// @Router /api/channels [post]
func (h *ChannelHandlers) CreateChannelHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	var input CreateChannelInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	channel, err := h.channels.CreateChannel(userID, input.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, ChannelResponse{
		ID:        channel.ID,
		Name:      channel.Name,
		CreatedBy: channel.CreatedBy,
		CreatedAt: channel.CreatedAt,
		Role:      "admin",
	})
}

// ListChannelsHandler lists the caller's channels
// @Summary List channels
// @Description List the channels the caller is a member of
// @Tags Channels
// @Produce json
// @Security Bearer
// @Success 200 {array} ChannelResponse
// @Router /api/channels [get]
func (h *ChannelHandlers) ListChannelsHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	channels, err := h.channels.GetUserChannels(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channels"})
		return
	}

	c.JSON(http.StatusOK, channels)
}

// GetChannelHandler returns one channel with its member list
// @Summary Get a channel
// @Description Get a channel with members and their live presence
// @Tags Channels
// @Produce json
// @Security Bearer
// @Param id path string true "Channel ID"
// @Success 200 {object} ChannelWithMembersResponse
// @Failure 403 {object} ErrorResponse "Not a member of this channel"
// @Failure 404 {object} ErrorResponse "Channel not found"
// @Router /api/channels/{id} [get]
func (h *ChannelHandlers) GetChannelHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	channelID := c.Param("id")

	channel, members, err := h.channels.GetChannel(userID, channelID)
	if err != nil {
		switch {
		case errors.Is(err, ch.ErrNotMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this channel"})
		case errors.Is(err, ch.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch channel"})
		}
		return
	}

	// Presence is live hub state, not storage state.
	online := make(map[string]bool)
	for _, p := range h.hub.Presence(channelID) {
		online[p.UserID] = true
	}
	for i := range members {
		members[i].IsOnline = online[members[i].UserID]
	}

	c.JSON(http.StatusOK, ChannelWithMembersResponse{
		ID:        channel.ID,
		Name:      channel.Name,
		CreatedBy: channel.CreatedBy,
		CreatedAt: channel.CreatedAt,
		Members:   members,
	})
}

// GetChannelMessagesHandler retrieves message history for a channel
// @Summary Get channel message history
// @Description Get the most recent messages of a channel in chronological order
// @Tags Messages
// @Produce json
// @Security Bearer
// @Param id path string true "Channel ID"
// @Param search query string false "Filter messages by content substring"
// @Success 200 {array} message.MessageInfo
// @Failure 403 {object} ErrorResponse "You are not a member of this channel"
// @Failure 404 {object} ErrorResponse "Channel not found"
// @Router /api/channels/{id}/messages [get]
func (h *ChannelHandlers) GetChannelMessagesHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	channelID := c.Param("id")

	messages, err := h.messages.GetChannelMessages(userID, channelID, c.Query("search"))
	if err != nil {
		switch {
		case errors.Is(err, m.ErrChannelNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Channel not found"})
		case errors.Is(err, m.ErrNotMember):
			c.JSON(http.StatusForbidden, gin.H{"error": "You are not a member of this channel"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve messages"})
		}
		return
	}

	c.JSON(http.StatusOK, messages)
}
