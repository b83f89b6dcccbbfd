package invitation

import (
	"errors"
	"time"

	"chathub/internal/audit"
	"chathub/internal/channel"
	"chathub/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrNotAdmin         = errors.New("only admins can invite users")
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyMember    = errors.New("user is already a member")
	ErrNotFound         = errors.New("invitation not found")
	ErrNotYours         = errors.New("not your invitation")
	ErrAlreadyProcessed = errors.New("invitation already processed")
)

type Service struct {
	db       *gorm.DB
	channels *channel.Service
	audit    *audit.Service
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:       db,
		channels: channel.NewService(db),
		audit:    audit.NewService(db),
	}
}

// InvitationInfo is an invitation row joined with channel and inviter names.
type InvitationInfo struct {
	ID              string    `json:"id"`
	ChannelID       string    `json:"channel_id"`
	ChannelName     string    `json:"channel_name"`
	InviterID       string    `json:"inviter_id"`
	InviterUsername string    `json:"inviter_username"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// InviteByEmail invites the account registered under email into the channel.
// Only channel admins may invite; a previously answered invitation for the
// same pair is reset to pending.
func (s *Service) InviteByEmail(inviterID, channelID, email string) (*InvitationInfo, error) {
	isAdmin, err := s.channels.IsAdmin(channelID, inviterID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotAdmin
	}

	var invitee chat.User
	if err := s.db.Where("email = ?", email).First(&invitee).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	isMember, err := s.channels.IsMember(channelID, invitee.ID)
	if err != nil {
		return nil, err
	}
	if isMember {
		return nil, ErrAlreadyMember
	}

	var invitation chat.Invitation
	err = s.db.Where("channel_id = ? AND invitee_id = ?", channelID, invitee.ID).First(&invitation).Error
	switch {
	case err == nil:
		updates := map[string]any{
			"status":     chat.InvitationPending,
			"inviter_id": inviterID,
			"created_at": time.Now(),
		}
		if err := s.db.Model(&invitation).Updates(updates).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		invitation = chat.Invitation{
			ChannelID: channelID,
			InviterID: inviterID,
			InviteeID: invitee.ID,
			Status:    chat.InvitationPending,
		}
		if err := s.db.Create(&invitation).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.audit.LogUserInvited(inviterID, channelID, invitee.Username)

	return s.getInfo(invitation.ID)
}

// ListPending lists the caller's open invitations, newest first.
func (s *Service) ListPending(userID string) ([]InvitationInfo, error) {
	var invitations []InvitationInfo
	err := s.infoQuery().
		Where("invitations.invitee_id = ? AND invitations.status = ?", userID, chat.InvitationPending).
		Order("invitations.created_at DESC").
		Scan(&invitations).Error
	return invitations, err
}

// Respond accepts or rejects a pending invitation. Accepting enrolls the
// invitee as a regular member.
func (s *Service) Respond(userID, invitationID string, accept bool) error {
	var invitation chat.Invitation
	if err := s.db.First(&invitation, "id = ?", invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	if invitation.InviteeID != userID {
		return ErrNotYours
	}
	if invitation.Status != chat.InvitationPending {
		return ErrAlreadyProcessed
	}

	status := chat.InvitationRejected
	if accept {
		status = chat.InvitationAccepted
	}
	if err := s.db.Model(&invitation).Update("status", status).Error; err != nil {
		return err
	}

	if accept {
		if err := s.channels.AddMember(invitation.ChannelID, userID, chat.RoleMember); err != nil {
			return err
		}
		s.audit.LogInvitationAccepted(userID, invitation.ChannelID)
	}

	return nil
}

func (s *Service) infoQuery() *gorm.DB {
	return s.db.Table("invitations").
		Select(`invitations.id, invitations.channel_id, channels.name AS channel_name,
			invitations.inviter_id, users.username AS inviter_username,
			invitations.status, invitations.created_at`).
		Joins("JOIN channels ON channels.id = invitations.channel_id").
		Joins("JOIN users ON users.id = invitations.inviter_id")
}

func (s *Service) getInfo(invitationID string) (*InvitationInfo, error) {
	var info InvitationInfo
	err := s.infoQuery().Where("invitations.id = ?", invitationID).Scan(&info).Error
	if err != nil {
		return nil, err
	}
	return &info, nil
}
