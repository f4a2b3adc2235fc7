package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	log "github.com/sirupsen/logrus"
)

// Conn is the slice of *websocket.Conn the directory needs. Kept narrow so
// the directory can be exercised without a live socket.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Event is the wire envelope for every server→client push.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Directory maps a user id to at most one live connection. It is rebuilt
// empty on every restart and is purely a best-effort routing table: a user
// without an entry simply does not get pushes, and the client poller covers
// that gap.
type Directory struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewDirectory() *Directory {
	return &Directory{conns: make(map[string]Conn)}
}

// Register adds the connection for a user, replacing any previous one, and
// broadcasts a fresh online-users snapshot to everybody.
func (d *Directory) Register(userID string, conn Conn) {
	d.mu.Lock()
	if old, ok := d.conns[userID]; ok && old != conn {
		_ = old.Close()
	}
	d.conns[userID] = conn
	total := len(d.conns)
	d.mu.Unlock()
	log.WithFields(log.Fields{"user": userID, "total_connections": total}).Info("ws connected")
	d.broadcastOnlineUsers()
}

// Unregister drops the user's connection and rebroadcasts the snapshot. A
// stale handle (already replaced by a newer connection) is ignored.
func (d *Directory) Unregister(userID string, conn Conn) {
	d.mu.Lock()
	if cur, ok := d.conns[userID]; ok && (conn == nil || cur == conn) {
		_ = cur.Close()
		delete(d.conns, userID)
	}
	total := len(d.conns)
	d.mu.Unlock()
	log.WithFields(log.Fields{"user": userID, "total_connections": total}).Info("ws disconnected")
	d.broadcastOnlineUsers()
}

// EmitToUser delivers one event to the user's live connection if there is
// one. No queueing, no retry; the returned bool says whether a write was
// attempted and succeeded.
func (d *Directory) EmitToUser(userID string, event string, payload interface{}) bool {
	d.mu.RLock()
	conn, ok := d.conns[userID]
	d.mu.RUnlock()
	if !ok || conn == nil {
		log.WithFields(log.Fields{"user": userID, "event": event}).Debug("notify skipped, no connection")
		return false
	}

	msg, err := json.Marshal(Event{Event: event, Data: payload})
	if err != nil {
		log.WithError(err).WithField("event", event).Error("failed to marshal notification")
		return false
	}

	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		log.WithError(err).WithFields(log.Fields{"user": userID, "event": event}).Error("notification write failed")
		return false
	}
	return true
}

// OnlineUserIDs returns a snapshot of currently connected user ids.
func (d *Directory) OnlineUserIDs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.conns))
	for id := range d.conns {
		out = append(out, id)
	}
	return out
}

// Count reports the number of live connections.
func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.conns)
}

// broadcastOnlineUsers sends the full roster, not a diff, to every live
// connection.
func (d *Directory) broadcastOnlineUsers() {
	users := d.OnlineUserIDs()
	msg, err := json.Marshal(Event{Event: "getOnlineUsers", Data: users})
	if err != nil {
		return
	}

	d.mu.RLock()
	conns := make([]Conn, 0, len(d.conns))
	for _, c := range d.conns {
		conns = append(conns, c)
	}
	d.mu.RUnlock()

	for _, c := range conns {
		c.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.WithError(err).Debug("online users broadcast write failed")
		}
	}
}
