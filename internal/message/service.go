package message

import (
	"errors"
	"strings"
	"time"

	"chathub/pkg/chat"

	"gorm.io/gorm"
)

var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrNotMember       = errors.New("you are not a member of this channel")
)

const historyLimit = 100

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// MessageInfo is a message row joined with its author's username.
type MessageInfo struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessage durably stores a message and returns it with its
// server-assigned ID and timestamp. Only channel members may write.
func (s *Service) CreateMessage(channelID, userID, content string) (*chat.Message, error) {
	var member chat.ChannelMember
	if err := s.db.Where("channel_id = ? AND user_id = ?", channelID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	message := chat.Message{
		ChannelID: channelID,
		UserID:    userID,
		Content:   content,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	return &message, nil
}

// GetChannelMessages returns the channel's most recent messages in
// chronological order, optionally filtered by a content substring.
func (s *Service) GetChannelMessages(userID, channelID, search string) ([]MessageInfo, error) {
	var channel chat.Channel
	if err := s.db.First(&channel, "id = ?", channelID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChannelNotFound
		}
		return nil, err
	}

	var member chat.ChannelMember
	if err := s.db.Where("channel_id = ? AND user_id = ?", channelID, userID).First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotMember
		}
		return nil, err
	}

	query := s.db.Table("messages").
		Select("messages.id, messages.channel_id, messages.user_id, users.username, messages.content, messages.created_at").
		Joins("JOIN users ON users.id = messages.user_id").
		Where("messages.channel_id = ?", channelID)

	if search != "" {
		query = query.Where("LOWER(messages.content) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	var messages []MessageInfo
	err := query.Order("messages.created_at DESC").Limit(historyLimit).Scan(&messages).Error
	if err != nil {
		return nil, err
	}

	// Newest-first from the query, oldest-first for the client.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
