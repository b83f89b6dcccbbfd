package chat

import (
	"time"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
	"gorm.io/gorm"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)

type User struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

type Channel struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	CreatedBy string    `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`

	Creator User            `gorm:"foreignKey:CreatedBy" json:"-"`
	Members []ChannelMember `json:"-"`
}

type ChannelMember struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	ChannelID string    `gorm:"uniqueIndex:idx_channel_user;not null" json:"channel_id"`
	UserID    string    `gorm:"uniqueIndex:idx_channel_user;not null" json:"user_id"`
	Role      string    `gorm:"not null;default:member" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	Channel Channel `gorm:"foreignKey:ChannelID" json:"-"`
	User    User    `gorm:"foreignKey:UserID" json:"-"`
}

type Invitation struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ChannelID string    `gorm:"uniqueIndex:idx_channel_invitee;not null" json:"channel_id"`
	InviterID string    `gorm:"not null" json:"inviter_id"`
	InviteeID string    `gorm:"uniqueIndex:idx_channel_invitee;not null" json:"invitee_id"`
	Status    string    `gorm:"not null;default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`

	Channel Channel `gorm:"foreignKey:ChannelID" json:"-"`
	Inviter User    `gorm:"foreignKey:InviterID" json:"-"`
	Invitee User    `gorm:"foreignKey:InviteeID" json:"-"`
}

type Message struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	ChannelID string    `gorm:"index;not null" json:"channel_id"`
	UserID    string    `gorm:"not null" json:"user_id"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Action      string    `gorm:"not null" json:"action"`
	ActorID     string    `gorm:"not null" json:"actor_id"`
	ChannelID   *string   `json:"channel_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = nanoid.New(8)
	}
	return
}

func (c *Channel) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID, err = nanoid.New(6)
	}
	return
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
