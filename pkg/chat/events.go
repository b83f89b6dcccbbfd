package chat

import "time"

// Server-to-client event types. The Type field discriminates the variant;
// fields that do not apply to a variant are omitted from the wire form.
const (
	EventChat       = "chat"
	EventTyping     = "typing"
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
)

// Client-to-server event types.
const (
	ClientSendMessage = "send_message"
	ClientTyping      = "typing"
)

// ServerEvent is a tagged wire record pushed to connected clients. Events are
// immutable once constructed and broadcast by value.
type ServerEvent struct {
	Type      string     `json:"type"`
	ID        string     `json:"id,omitempty"`
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	Content   string     `json:"content,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	IsTyping  *bool      `json:"is_typing,omitempty"`
}

// ClientEvent is a tagged wire record received from a client.
type ClientEvent struct {
	Type     string `json:"type"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// NewChatEvent wraps a persisted message for broadcast. The message must
// already carry its server-assigned ID and timestamp.
func NewChatEvent(msg Message, username string) ServerEvent {
	createdAt := msg.CreatedAt
	return ServerEvent{
		Type:      EventChat,
		ID:        msg.ID,
		UserID:    msg.UserID,
		Username:  username,
		Content:   msg.Content,
		CreatedAt: &createdAt,
	}
}

func NewTypingEvent(userID, username string, isTyping bool) ServerEvent {
	return ServerEvent{
		Type:     EventTyping,
		UserID:   userID,
		Username: username,
		IsTyping: &isTyping,
	}
}

func NewUserJoinedEvent(userID, username string) ServerEvent {
	return ServerEvent{Type: EventUserJoined, UserID: userID, Username: username}
}

func NewUserLeftEvent(userID, username string) ServerEvent {
	return ServerEvent{Type: EventUserLeft, UserID: userID, Username: username}
}
