package audit

import (
	"log"

	"chathub/pkg/chat"

	"gorm.io/gorm"
)

// Action constants for audit logging
const (
	ActionCreateChannel    = "CREATE_CHANNEL"
	ActionInviteUser       = "INVITE_USER"
	ActionAcceptInvitation = "ACCEPT_INVITATION"
	ActionDeleteAccount    = "DELETE_ACCOUNT"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) LogChannelCreated(actorID, channelID, channelName string) {
	s.write(chat.AuditLog{
		Action:      ActionCreateChannel,
		ActorID:     actorID,
		ChannelID:   &channelID,
		Description: "Created channel '" + channelName + "'",
	})
}

func (s *Service) LogUserInvited(actorID, channelID, inviteeUsername string) {
	s.write(chat.AuditLog{
		Action:      ActionInviteUser,
		ActorID:     actorID,
		ChannelID:   &channelID,
		Description: "Invited '" + inviteeUsername + "'",
	})
}

func (s *Service) LogInvitationAccepted(actorID, channelID string) {
	s.write(chat.AuditLog{
		Action:      ActionAcceptInvitation,
		ActorID:     actorID,
		ChannelID:   &channelID,
		Description: "Joined via invitation",
	})
}

func (s *Service) LogAccountDeleted(actorID string) {
	s.write(chat.AuditLog{
		Action:      ActionDeleteAccount,
		ActorID:     actorID,
		Description: "Deleted own account",
	})
}

// RecentForChannel returns the channel's latest audit entries, newest first.
func (s *Service) RecentForChannel(channelID string, limit int) ([]chat.AuditLog, error) {
	var logs []chat.AuditLog
	err := s.db.Where("channel_id = ?", channelID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}

// Audit writes never fail the action they describe.
func (s *Service) write(entry chat.AuditLog) {
	if err := s.db.Create(&entry).Error; err != nil {
		log.Printf("audit: record %s: %v", entry.Action, err)
	}
}
