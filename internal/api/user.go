package api

import (
	"errors"
	"net/http"

	u "chathub/internal/user"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type UserHandlers struct {
	service *u.Service
}

func NewUserHandlers(db *gorm.DB) *UserHandlers {
	return &UserHandlers{
		service: u.NewService(db),
	}
}

// UpdateUserHandler updates user information
// @Summary Update user information
// @Description Update the caller's username and/or password
// @Tags User Management
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body user.UpdateRequest true "Update user request"
// @Success 200 {object} UserResponse "User updated successfully"
// @Failure 400 {object} ErrorResponse "Bad request or username already exists"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /api/user [patch]
func (h *UserHandlers) UpdateUserHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	var req u.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.Update(userID, req)
	if err != nil {
		switch {
		case errors.Is(err, u.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case err.Error() == "username already exists":
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update user"})
		}
		return
	}

	c.JSON(http.StatusOK, UserResponse{ID: user.ID, Username: user.Username, Email: user.Email})
}

// DeleteUserHandler deletes the caller's account
// @Summary Delete account
// @Description Delete the caller's account, memberships and invitations
// @Tags User Management
// @Produce json
// @Security Bearer
// @Success 200 {object} MessageResponse "Account deleted"
// @Failure 404 {object} ErrorResponse "User not found"
// @Router /api/user [delete]
func (h *UserHandlers) DeleteUserHandler(c *gin.Context) {
	userID := c.GetString("user_id")

	if err := h.service.Delete(userID); err != nil {
		if errors.Is(err, u.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Account deleted"})
}
