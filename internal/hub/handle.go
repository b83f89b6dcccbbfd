package hub

import "chathub/pkg/chat"

// Handle submits commands to a running hub. It is a small value safe to copy
// and share between goroutines; sessions interact with the hub exclusively
// through it.
//
// Connect, Disconnect and SendMessage are fire-and-forget: effects are
// observed through outbound queues, never through return values.
type Handle struct {
	cmds chan<- command
}

// Connect registers a connection under channelID and announces the join to
// the channel's other members. The caller guarantees conn is freshly
// allocated and queue is exclusively handed over to the hub.
func (h Handle) Connect(conn ConnID, userID, username, channelID string, queue chan []byte) {
	h.cmds <- connectCmd{
		conn:      conn,
		userID:    userID,
		username:  username,
		channelID: channelID,
		queue:     queue,
	}
}

// Disconnect removes a connection and announces the leave to the remaining
// members. Safe to submit more than once for the same conn.
func (h Handle) Disconnect(conn ConnID) {
	h.cmds <- disconnectCmd{conn: conn}
}

// SendMessage fans event out to every connection in channelID except conn.
func (h Handle) SendMessage(conn ConnID, channelID string, event chat.ServerEvent) {
	h.cmds <- messageCmd{conn: conn, channelID: channelID, event: event}
}

// Snapshot returns a consistent view of all registries.
func (h Handle) Snapshot() Snapshot {
	reply := make(chan Snapshot, 1)
	h.cmds <- snapshotCmd{reply: reply}
	return <-reply
}

// Presence returns the connections currently registered under channelID.
func (h Handle) Presence(channelID string) []Presence {
	reply := make(chan []Presence, 1)
	h.cmds <- presenceCmd{channelID: channelID, reply: reply}
	return <-reply
}
