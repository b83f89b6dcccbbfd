package client

import (
	"encoding/json"
	"fmt"
	"net/url"

	"chathub/pkg/chat"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
)

type serverEventMsg chat.ServerEvent

type connectionLostMsg struct{ err error }

// WSClient is the client side of one channel connection.
type WSClient struct {
	conn *websocket.Conn
}

// Dial connects to /ws/{channel} with the bearer token as a query parameter.
func Dial(host, channelID, token string) (*WSClient, error) {
	u := url.URL{
		Scheme:   "ws",
		Host:     host,
		Path:     fmt.Sprintf("/ws/%s", channelID),
		RawQuery: url.Values{"token": {token}}.Encode(),
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	return &WSClient{conn: conn}, nil
}

// Listen blocks on the next server event and converts it into a tea message.
func (c *WSClient) Listen() tea.Cmd {
	return func() tea.Msg {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return connectionLostMsg{err: err}
		}

		var ev chat.ServerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil
		}
		return serverEventMsg(ev)
	}
}

func (c *WSClient) SendChat(content string) error {
	return c.send(chat.ClientEvent{Type: chat.ClientSendMessage, Content: content})
}

func (c *WSClient) SendTyping(isTyping bool) error {
	return c.send(chat.ClientEvent{Type: chat.ClientTyping, IsTyping: isTyping})
}

func (c *WSClient) Close() error {
	return c.conn.Close()
}

func (c *WSClient) send(ev chat.ClientEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
