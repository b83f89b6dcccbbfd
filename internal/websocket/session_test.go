package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"chathub/internal/hub"
	"chathub/pkg/chat"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore records persisted messages and can be told to fail writes.
type fakeStore struct {
	mu        sync.Mutex
	insertErr error
	inserted  []chat.Message
}

func (s *fakeStore) IsMember(channelID, userID string) (bool, error) {
	return true, nil
}

func (s *fakeStore) InsertMessage(channelID, userID, content string) (*chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return nil, s.insertErr
	}
	msg := chat.Message{
		ID:        uuid.NewString(),
		ChannelID: channelID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	s.inserted = append(s.inserted, msg)
	return &msg, nil
}

func (s *fakeStore) insertedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

// newTestServer upgrades every request and starts a session using the
// identity carried in the query string.
func newTestServer(t *testing.T, store Store, timings Timings) *httptest.Server {
	t.Helper()

	h, handle := hub.New()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go h.Run(ctx)

	ids := hub.NewIDAllocator()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		session := NewSession(handle, store, conn, ids.Next(), q.Get("user"), q.Get("name"), q.Get("channel"), timings)
		go session.Run()
	}))
	t.Cleanup(srv.Close)

	return srv
}

func dial(t *testing.T, srv *httptest.Server, userID, username, channelID string) *websocket.Conn {
	t.Helper()

	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + url.Values{
		"user":    {userID},
		"name":    {username},
		"channel": {channelID},
	}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

// events keeps the connection pong-responsive by reading continuously and
// funnels decoded server events into a channel.
func events(conn *websocket.Conn) <-chan chat.ServerEvent {
	out := make(chan chat.ServerEvent, 32)
	go func() {
		defer close(out)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var ev chat.ServerEvent
			if json.Unmarshal(data, &ev) == nil {
				out <- ev
			}
		}
	}()
	return out
}

func nextEvent(t *testing.T, ch <-chan chat.ServerEvent) chat.ServerEvent {
	t.Helper()

	select {
	case ev, ok := <-ch:
		require.True(t, ok, "connection closed while waiting for event")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return chat.ServerEvent{}
	}
}

func expectNone(t *testing.T, ch <-chan chat.ServerEvent, wait time.Duration) {
	t.Helper()

	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected %s event from %s", ev.Type, ev.Username)
		}
	case <-time.After(wait):
	}
}

func sendClientEvent(t *testing.T, conn *websocket.Conn, ev chat.ClientEvent) {
	t.Helper()

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestChatMessageReachesPeersNotSender(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	aliceEvents := events(alice)
	bob := dial(t, srv, "u-bob", "bob", "C1")
	bobEvents := events(bob)

	joined := nextEvent(t, aliceEvents)
	require.Equal(t, chat.EventUserJoined, joined.Type)

	sendClientEvent(t, alice, chat.ClientEvent{Type: chat.ClientSendMessage, Content: "hi"})

	ev := nextEvent(t, bobEvents)
	assert.Equal(t, chat.EventChat, ev.Type)
	assert.Equal(t, "u-alice", ev.UserID)
	assert.Equal(t, "alice", ev.Username)
	assert.Equal(t, "hi", ev.Content)
	assert.NotEmpty(t, ev.ID, "broadcast message must carry its server-assigned id")
	require.NotNil(t, ev.CreatedAt, "broadcast message must carry its server timestamp")

	expectNone(t, aliceEvents, 300*time.Millisecond)
}

func TestBroadcastOnlyAfterDurableWrite(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	aliceEvents := events(alice)
	bob := dial(t, srv, "u-bob", "bob", "C1")
	bobEvents := events(bob)
	nextEvent(t, aliceEvents) // bob joined

	sendClientEvent(t, alice, chat.ClientEvent{Type: chat.ClientSendMessage, Content: "persisted"})

	ev := nextEvent(t, bobEvents)
	require.Equal(t, chat.EventChat, ev.Type)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.inserted, 1)
	assert.Equal(t, ev.ID, store.inserted[0].ID)
	assert.Equal(t, "persisted", store.inserted[0].Content)
}

func TestPersistenceFailureDropsMessage(t *testing.T) {
	store := &fakeStore{insertErr: errors.New("storage down")}
	srv := newTestServer(t, store, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	aliceEvents := events(alice)
	bob := dial(t, srv, "u-bob", "bob", "C1")
	bobEvents := events(bob)
	nextEvent(t, aliceEvents) // bob joined

	sendClientEvent(t, alice, chat.ClientEvent{Type: chat.ClientSendMessage, Content: "lost"})

	expectNone(t, bobEvents, 300*time.Millisecond)
	assert.Zero(t, store.insertedCount())
}

func TestTypingIndicatorIsNotPersisted(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	bob := dial(t, srv, "u-bob", "bob", "C1")
	aliceEvents := events(alice)
	bobEvents := events(bob)

	nextEvent(t, aliceEvents) // bob joined

	sendClientEvent(t, alice, chat.ClientEvent{Type: chat.ClientTyping, IsTyping: true})

	ev := nextEvent(t, bobEvents)
	assert.Equal(t, chat.EventTyping, ev.Type)
	assert.Equal(t, "alice", ev.Username)
	require.NotNil(t, ev.IsTyping)
	assert.True(t, *ev.IsTyping)

	assert.Zero(t, store.insertedCount())
	expectNone(t, aliceEvents, 200*time.Millisecond)
}

func TestJoinNoticeDeliveredOncePerPeer(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	aliceEvents := events(alice)
	bob := dial(t, srv, "u-bob", "bob", "C1")
	bobEvents := events(bob)
	nextEvent(t, aliceEvents) // bob joined

	carol := dial(t, srv, "u-carol", "carol", "C1")
	carolEvents := events(carol)

	for _, ch := range []<-chan chat.ServerEvent{aliceEvents, bobEvents} {
		ev := nextEvent(t, ch)
		assert.Equal(t, chat.EventUserJoined, ev.Type)
		assert.Equal(t, "u-carol", ev.UserID)
		assert.Equal(t, "carol", ev.Username)
	}

	expectNone(t, carolEvents, 300*time.Millisecond)
	expectNone(t, aliceEvents, 100*time.Millisecond)
	expectNone(t, bobEvents, 100*time.Millisecond)
}

func TestLeaveNoticeOnDisconnect(t *testing.T) {
	srv := newTestServer(t, &fakeStore{}, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	aliceEvents := events(alice)
	carol := dial(t, srv, "u-carol", "carol", "C1")
	_ = events(carol)
	nextEvent(t, aliceEvents) // carol joined

	carol.Close()

	ev := nextEvent(t, aliceEvents)
	assert.Equal(t, chat.EventUserLeft, ev.Type)
	assert.Equal(t, "u-carol", ev.UserID)

	expectNone(t, aliceEvents, 200*time.Millisecond)
}

func TestMalformedPayloadsAreIgnored(t *testing.T) {
	store := &fakeStore{}
	srv := newTestServer(t, store, DefaultTimings())

	alice := dial(t, srv, "u-alice", "alice", "C1")
	aliceEvents := events(alice)
	bob := dial(t, srv, "u-bob", "bob", "C1")
	bobEvents := events(bob)
	nextEvent(t, aliceEvents) // bob joined

	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte("{not json")))
	require.NoError(t, alice.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)))

	// The connection survives and still carries traffic.
	sendClientEvent(t, alice, chat.ClientEvent{Type: chat.ClientSendMessage, Content: "still here"})
	ev := nextEvent(t, bobEvents)
	assert.Equal(t, "still here", ev.Content)
}

func TestSilentPeerIsEvicted(t *testing.T) {
	timings := Timings{
		WriteWait:  time.Second,
		PongWait:   200 * time.Millisecond,
		PingPeriod: 100 * time.Millisecond,
	}
	srv := newTestServer(t, &fakeStore{}, timings)

	bob := dial(t, srv, "u-bob", "bob", "C1")
	bobEvents := events(bob)

	// alice never reads, so she never answers pings.
	start := time.Now()
	dial(t, srv, "u-alice", "alice", "C1")

	joined := nextEvent(t, bobEvents)
	require.Equal(t, chat.EventUserJoined, joined.Type)

	left := nextEvent(t, bobEvents)
	elapsed := time.Since(start)
	assert.Equal(t, chat.EventUserLeft, left.Type)
	assert.Equal(t, "u-alice", left.UserID)
	assert.GreaterOrEqual(t, elapsed, timings.PingPeriod, "eviction cannot precede the first probe")
	assert.Less(t, elapsed, 2*time.Second, "eviction must happen within the timeout window")
}

func TestResponsivePeerIsNotEvicted(t *testing.T) {
	timings := Timings{
		WriteWait:  time.Second,
		PongWait:   200 * time.Millisecond,
		PingPeriod: 100 * time.Millisecond,
	}
	store := &fakeStore{}
	srv := newTestServer(t, store, timings)

	alice := dial(t, srv, "u-alice", "alice", "C1")
	bob := dial(t, srv, "u-bob", "bob", "C1")
	aliceEvents := events(alice)
	bobEvents := events(bob)
	nextEvent(t, aliceEvents) // bob joined

	// Both clients keep reading, which answers pings. Outlive several
	// timeout windows, then confirm the link still carries traffic.
	time.Sleep(3 * timings.PongWait)

	sendClientEvent(t, alice, chat.ClientEvent{Type: chat.ClientSendMessage, Content: "alive"})
	ev := nextEvent(t, bobEvents)
	assert.Equal(t, "alive", ev.Content)
}
