package user

import (
	"errors"
	"fmt"

	"chathub/internal/audit"
	"chathub/internal/auth"
	"chathub/pkg/chat"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("user not found")

type Service struct {
	db    *gorm.DB
	audit *audit.Service
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, audit: audit.NewService(db)}
}

type UpdateRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
}

// Update changes the account's username and/or password.
func (s *Service) Update(userID string, req UpdateRequest) (*chat.User, error) {
	var user chat.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	updates := make(map[string]any)

	if req.Username != nil {
		var existing chat.User
		result := s.db.First(&existing, "username = ? AND id != ?", *req.Username, userID)
		if result.Error == nil {
			return nil, errors.New("username already exists")
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check username uniqueness: %w", result.Error)
		}
		updates["username"] = *req.Username
	}

	if req.Password != nil {
		hashed, err := auth.HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		updates["password"] = hashed
	}

	if len(updates) == 0 {
		return &user, nil
	}

	if err := s.db.Model(&user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to reload user: %w", err)
	}

	return &user, nil
}

// Delete removes the account along with its memberships and invitations.
func (s *Service) Delete(userID string) error {
	var user chat.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.db.Where("user_id = ?", userID).Delete(&chat.ChannelMember{}).Error; err != nil {
		return fmt.Errorf("failed to remove memberships: %w", err)
	}
	if err := s.db.Where("invitee_id = ?", userID).Delete(&chat.Invitation{}).Error; err != nil {
		return fmt.Errorf("failed to remove invitations: %w", err)
	}
	if err := s.db.Delete(&user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	s.audit.LogAccountDeleted(userID)

	return nil
}
