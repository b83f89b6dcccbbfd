package api

import (
	"errors"
	"net/http"

	inv "chathub/internal/invitation"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type InvitationHandlers struct {
	invitations *inv.Service
}

func NewInvitationHandlers(db *gorm.DB) *InvitationHandlers {
	return &InvitationHandlers{
		invitations: inv.NewService(db),
	}
}

type InviteInput struct {
	Email string `json:"email" binding:"required,email" example:"jane@example.com"`
}

// InviteHandler invites a user into a channel by email
// @Summary Invite a user
// @Description Invite the account registered under the given email (admins only)
// @Tags Invitations
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Channel ID"
// @Param request body InviteInput true "Invite request"
// @Success 201 {object} invitation.InvitationInfo
// @Failure 403 {object} ErrorResponse "Only admins can invite users"
// @Failure 404 {object} ErrorResponse "User not found"
// @Failure 409 {object} ErrorResponse "User is already a member"
// @Router /api/channels/{id}/invite [post]
func (h *InvitationHandlers) InviteHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	channelID := c.Param("id")

	var input InviteInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invitation, err := h.invitations.InviteByEmail(userID, channelID, input.Email)
	if err != nil {
		switch {
		case errors.Is(err, inv.ErrNotAdmin):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, inv.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, inv.ErrAlreadyMember):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		}
		return
	}

	c.JSON(http.StatusCreated, invitation)
}

// ListInvitationsHandler lists the caller's pending invitations
// @Summary List invitations
// @Description List the caller's pending invitations, newest first
// @Tags Invitations
// @Produce json
// @Security Bearer
// @Success 200 {array} invitation.InvitationInfo
// @Router /api/invitations [get]
func (h *InvitationHandlers) ListInvitationsHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	invitations, err := h.invitations.ListPending(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch invitations"})
		return
	}

	c.JSON(http.StatusOK, invitations)
}

type RespondInput struct {
	Accept bool `json:"accept"`
}

// RespondHandler accepts or rejects an invitation
// @Summary Respond to an invitation
// @Description Accept or reject a pending invitation addressed to the caller
// @Tags Invitations
// @Accept json
// @Produce json
// @Security Bearer
// @Param id path string true "Invitation ID"
// @Param request body RespondInput true "Response"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse "Not your invitation"
// @Failure 404 {object} ErrorResponse "Invitation not found"
// @Failure 409 {object} ErrorResponse "Invitation already processed"
// @Router /api/invitations/{id}/respond [post]
func (h *InvitationHandlers) RespondHandler(c *gin.Context) {
	userID := c.GetString("user_id")
	invitationID := c.Param("id")

	var input RespondInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.invitations.Respond(userID, invitationID, input.Accept); err != nil {
		switch {
		case errors.Is(err, inv.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, inv.ErrNotYours):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, inv.ErrAlreadyProcessed):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to respond to invitation"})
		}
		return
	}

	message := "Invitation rejected"
	if input.Accept {
		message = "Invitation accepted"
	}
	c.JSON(http.StatusOK, gin.H{"message": message})
}

type MessageResponse struct {
	Message string `json:"message" example:"Invitation accepted"`
}
