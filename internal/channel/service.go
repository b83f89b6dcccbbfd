package channel

import (
	"errors"
	"time"

	"chathub/internal/audit"
	"chathub/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("channel not found")
	ErrNotMember = errors.New("not a member of this channel")
)

type Service struct {
	db    *gorm.DB
	audit *audit.Service
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, audit: audit.NewService(db)}
}

// ChannelInfo is a channel row joined with the caller's role in it.
type ChannelInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	Role      string    `json:"role"`
}

// MemberInfo is one member of a channel. IsOnline is live-connection state
// and is filled in by the caller from hub presence, not from storage.
type MemberInfo struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	IsOnline bool   `json:"is_online"`
}

// CreateChannel creates the channel and enrolls the creator as its admin.
func (s *Service) CreateChannel(creatorID, name string) (*chat.Channel, error) {
	if name == "" {
		return nil, errors.New("channel name cannot be empty")
	}

	channel := chat.Channel{
		Name:      name,
		CreatedBy: creatorID,
	}
	if err := s.db.Create(&channel).Error; err != nil {
		return nil, err
	}

	member := chat.ChannelMember{
		ChannelID: channel.ID,
		UserID:    creatorID,
		Role:      chat.RoleAdmin,
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}

	s.audit.LogChannelCreated(creatorID, channel.ID, channel.Name)

	return &channel, nil
}

// GetUserChannels lists the channels the user belongs to, newest first.
func (s *Service) GetUserChannels(userID string) ([]ChannelInfo, error) {
	var channels []ChannelInfo
	err := s.db.Table("channels").
		Select("channels.id, channels.name, channels.created_by, channels.created_at, channel_members.role").
		Joins("JOIN channel_members ON channel_members.channel_id = channels.id").
		Where("channel_members.user_id = ?", userID).
		Order("channels.created_at DESC").
		Scan(&channels).Error
	return channels, err
}

// GetChannel returns the channel with its member list. Only members may look.
func (s *Service) GetChannel(userID, channelID string) (*chat.Channel, []MemberInfo, error) {
	isMember, err := s.IsMember(channelID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !isMember {
		return nil, nil, ErrNotMember
	}

	var channel chat.Channel
	if err := s.db.First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	var members []MemberInfo
	err = s.db.Table("channel_members").
		Select("channel_members.user_id, users.username, channel_members.role").
		Joins("JOIN users ON users.id = channel_members.user_id").
		Where("channel_members.channel_id = ?", channelID).
		Order("channel_members.role ASC, users.username ASC").
		Scan(&members).Error
	if err != nil {
		return nil, nil, err
	}

	return &channel, members, nil
}

// IsMember answers the membership question consumed by the websocket entry
// point before any hub registration happens.
func (s *Service) IsMember(channelID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&chat.ChannelMember{}).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Count(&count).Error
	return count > 0, err
}

// IsAdmin reports whether the user holds the admin role in the channel.
func (s *Service) IsAdmin(channelID, userID string) (bool, error) {
	var count int64
	err := s.db.Model(&chat.ChannelMember{}).
		Where("channel_id = ? AND user_id = ? AND role = ?", channelID, userID, chat.RoleAdmin).
		Count(&count).Error
	return count > 0, err
}

// AddMember enrolls a user with the given role. Used by the invitation flow.
func (s *Service) AddMember(channelID, userID, role string) error {
	member := chat.ChannelMember{
		ChannelID: channelID,
		UserID:    userID,
		Role:      role,
	}
	return s.db.Create(&member).Error
}
