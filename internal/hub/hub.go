package hub

import (
	"context"
	"encoding/json"
	"log"
	"sync/atomic"

	"chathub/pkg/chat"
)

// ConnID identifies one live connection. IDs are process-unique and never
// reused while the process runs.
type ConnID uint64

// IDAllocator hands out fresh connection IDs. The zero ConnID is reserved as
// the "no connection" sentinel, so allocation starts at 1.
type IDAllocator struct {
	next atomic.Uint64
}

func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

func (a *IDAllocator) Next() ConnID {
	return ConnID(a.next.Add(1))
}

// identity is what the hub remembers about a registered connection.
type identity struct {
	userID    string
	username  string
	channelID string
}

type connectCmd struct {
	conn      ConnID
	userID    string
	username  string
	channelID string
	queue     chan []byte
}

type disconnectCmd struct {
	conn ConnID
}

type messageCmd struct {
	conn      ConnID
	channelID string
	event     chat.ServerEvent
}

type snapshotCmd struct {
	reply chan Snapshot
}

type presenceCmd struct {
	channelID string
	reply     chan []Presence
}

// Presence describes one registered connection.
type Presence struct {
	Conn      ConnID `json:"conn_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	ChannelID string `json:"channel_id"`
}

// Snapshot is a consistent view of the hub's registries, taken between two
// commands.
type Snapshot struct {
	Connections int            `json:"connections"`
	Channels    map[string]int `json:"channels"`
	Users       []Presence     `json:"users"`
}

// Hub is the single authority over who is connected to which channel. All
// mutation flows through one command channel drained by Run, one command at a
// time, so the maps below need no locking.
//
// The hub exclusively owns the send side of every registered outbound queue:
// it is the only goroutine that enqueues to or closes them.
type Hub struct {
	cmds chan command

	sessions map[ConnID]chan []byte
	info     map[ConnID]identity
	channels map[string]map[ConnID]struct{}
}

type command any

// Commands queue here while the hub works; submission only blocks if the hub
// falls this far behind.
const commandBacklog = 256

// New creates a hub and the handle used to submit commands to it. Call Run to
// start processing.
func New() (*Hub, Handle) {
	h := &Hub{
		cmds:     make(chan command, commandBacklog),
		sessions: make(map[ConnID]chan []byte),
		info:     make(map[ConnID]identity),
		channels: make(map[string]map[ConnID]struct{}),
	}
	return h, Handle{cmds: h.cmds}
}

// Run processes commands in submission order until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-h.cmds:
			h.apply(cmd)
		}
	}
}

func (h *Hub) apply(cmd command) {
	switch c := cmd.(type) {
	case connectCmd:
		h.connect(c)
	case disconnectCmd:
		h.disconnect(c.conn)
	case messageCmd:
		h.broadcast(c.channelID, c.event, c.conn)
	case snapshotCmd:
		c.reply <- h.snapshot()
	case presenceCmd:
		c.reply <- h.presence(c.channelID)
	}
}

func (h *Hub) connect(c connectCmd) {
	h.sessions[c.conn] = c.queue
	h.info[c.conn] = identity{userID: c.userID, username: c.username, channelID: c.channelID}

	set, ok := h.channels[c.channelID]
	if !ok {
		set = make(map[ConnID]struct{})
		h.channels[c.channelID] = set
	}
	set[c.conn] = struct{}{}

	// Peers learn about the join; the joining connection does not.
	h.broadcast(c.channelID, chat.NewUserJoinedEvent(c.userID, c.username), c.conn)
}

// disconnect is idempotent: a conn that was already removed is a no-op.
func (h *Hub) disconnect(conn ConnID) {
	queue, ok := h.sessions[conn]
	if !ok {
		return
	}
	delete(h.sessions, conn)
	close(queue)

	id := h.info[conn]
	delete(h.info, conn)

	if set, ok := h.channels[id.channelID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.channels, id.channelID)
		}
	}

	h.broadcast(id.channelID, chat.NewUserLeftEvent(id.userID, id.username), 0)
}

// broadcast fans an event out to every connection in the channel except
// exclude (0 excludes nobody). A channel with no connections is a silent
// no-op: the triggering event may legitimately race a mass disconnect.
//
// A full recipient queue drops the event for that recipient only; that
// session's own disconnect path is the authoritative cleanup, never a failed
// enqueue here.
func (h *Hub) broadcast(channelID string, event chat.ServerEvent, exclude ConnID) {
	set, ok := h.channels[channelID]
	if !ok {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("hub: marshal %s event: %v", event.Type, err)
		return
	}

	for conn := range set {
		if conn == exclude {
			continue
		}
		queue, ok := h.sessions[conn]
		if !ok {
			continue
		}
		select {
		case queue <- payload:
		default:
		}
	}
}

func (h *Hub) snapshot() Snapshot {
	snap := Snapshot{
		Connections: len(h.sessions),
		Channels:    make(map[string]int, len(h.channels)),
		Users:       make([]Presence, 0, len(h.info)),
	}
	for channelID, set := range h.channels {
		snap.Channels[channelID] = len(set)
	}
	for conn, id := range h.info {
		snap.Users = append(snap.Users, Presence{
			Conn:      conn,
			UserID:    id.userID,
			Username:  id.username,
			ChannelID: id.channelID,
		})
	}
	return snap
}

func (h *Hub) presence(channelID string) []Presence {
	set, ok := h.channels[channelID]
	if !ok {
		return nil
	}
	users := make([]Presence, 0, len(set))
	for conn := range set {
		id := h.info[conn]
		users = append(users, Presence{
			Conn:      conn,
			UserID:    id.userID,
			Username:  id.username,
			ChannelID: channelID,
		})
	}
	return users
}
