package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"chathub/internal/hub"
	"chathub/pkg/chat"

	"github.com/gorilla/websocket"
)

const (
	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound queue capacity per connection.
	sendBuffer = 256
)

// Timings govern the session's liveness policy. The server probes the peer
// every PingPeriod; a peer with no inbound activity for PongWait is declared
// dead and evicted. PingPeriod must be less than PongWait.
type Timings struct {
	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		WriteWait:  10 * time.Second,
		PongWait:   10 * time.Second,
		PingPeriod: 5 * time.Second,
	}
}

// Store is the external authority consumed by sessions: membership facts and
// durable message writes. The session never decides membership itself.
type Store interface {
	IsMember(channelID, userID string) (bool, error)
	InsertMessage(channelID, userID, content string) (*chat.Message, error)
}

// Session bridges one websocket connection to the hub. It owns the transport
// and the receive side of its outbound queue; the hub owns the send side.
type Session struct {
	conn  *websocket.Conn
	hub   hub.Handle
	store Store

	connID    hub.ConnID
	userID    string
	username  string
	channelID string

	queue   chan []byte
	timings Timings

	closeOnce sync.Once
}

func NewSession(h hub.Handle, store Store, conn *websocket.Conn, connID hub.ConnID, userID, username, channelID string, timings Timings) *Session {
	return &Session{
		conn:      conn,
		hub:       h,
		store:     store,
		connID:    connID,
		userID:    userID,
		username:  username,
		channelID: channelID,
		queue:     make(chan []byte, sendBuffer),
		timings:   timings,
	}
}

// Run registers the session with the hub and pumps the connection until it
// dies. Every exit path funnels through close, so the hub always observes
// exactly one Disconnect.
func (s *Session) Run() {
	s.hub.Connect(s.connID, s.userID, s.username, s.channelID, s.queue)
	go s.writePump()
	s.readPump()
}

// readPump drains inbound frames. Any inbound frame counts as liveness and
// pushes the read deadline out; when the peer goes silent past PongWait the
// pending read fails and the session closes.
func (s *Session) readPump() {
	defer s.close()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(s.timings.PongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.timings.PongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.conn.SetReadDeadline(time.Now().Add(s.timings.PongWait))
		s.handleClientEvent(data)
	}
}

// handleClientEvent dispatches one inbound frame. Malformed or unrecognized
// payloads are ignored; they are not fatal to the connection.
func (s *Session) handleClientEvent(data []byte) {
	var ev chat.ClientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return
	}

	switch ev.Type {
	case chat.ClientSendMessage:
		go s.persistAndBroadcast(ev.Content)
	case chat.ClientTyping:
		s.hub.SendMessage(s.connID, s.channelID,
			chat.NewTypingEvent(s.userID, s.username, ev.IsTyping))
	}
}

// persistAndBroadcast writes the message durably and only then hands it to
// the hub, so every broadcast chat message has a backing record with a
// server-assigned ID and timestamp. A failed write drops the message; nothing
// is broadcast and nothing is retried.
func (s *Session) persistAndBroadcast(content string) {
	msg, err := s.store.InsertMessage(s.channelID, s.userID, content)
	if err != nil {
		log.Printf("websocket: persist message from %s: %v", s.userID, err)
		return
	}
	s.hub.SendMessage(s.connID, s.channelID, chat.NewChatEvent(*msg, s.username))
}

// writePump drains the outbound queue to the socket and probes the peer every
// PingPeriod. It exits when the hub closes the queue (disconnect processed)
// or a write fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(s.timings.PingPeriod)
	defer func() {
		ticker.Stop()
		s.close()
	}()

	for {
		select {
		case payload, ok := <-s.queue:
			s.conn.SetWriteDeadline(time.Now().Add(s.timings.WriteWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.timings.WriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.hub.Disconnect(s.connID)
		s.conn.Close()
	})
}
