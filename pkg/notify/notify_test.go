package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	mu       sync.Mutex
	writes   [][]byte
	writeErr error
	closed   bool
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	c.writes = append(c.writes, cp)
	return nil
}

func (c *fakeConn) SetWriteDeadline(t time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) events(t *testing.T) []Event {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, 0, len(c.writes))
	for _, raw := range c.writes {
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("connection received invalid JSON %q: %v", raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func (c *fakeConn) lastEvent(t *testing.T) Event {
	t.Helper()
	evs := c.events(t)
	if len(evs) == 0 {
		t.Fatal("connection received no events")
	}
	return evs[len(evs)-1]
}

func rosterOf(t *testing.T, ev Event) []string {
	t.Helper()
	if ev.Event != "getOnlineUsers" {
		t.Fatalf("event = %q, want getOnlineUsers", ev.Event)
	}
	raw, ok := ev.Data.([]interface{})
	if !ok {
		t.Fatalf("roster data is %T, want a list", ev.Data)
	}
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = v.(string)
	}
	return out
}

func TestRegister(t *testing.T) {
	t.Run("broadcasts the full roster to every connection", func(t *testing.T) {
		d := NewDirectory()
		alice := &fakeConn{}
		bob := &fakeConn{}

		d.Register("alice", alice)
		d.Register("bob", bob)

		roster := rosterOf(t, alice.lastEvent(t))
		if len(roster) != 2 {
			t.Fatalf("roster = %v, want both users", roster)
		}
		seen := map[string]bool{}
		for _, id := range roster {
			seen[id] = true
		}
		if !seen["alice"] || !seen["bob"] {
			t.Errorf("roster = %v, want alice and bob", roster)
		}
	})

	t.Run("a reconnect replaces and closes the previous connection", func(t *testing.T) {
		d := NewDirectory()
		first := &fakeConn{}
		second := &fakeConn{}

		d.Register("alice", first)
		d.Register("alice", second)

		if !first.closed {
			t.Error("replaced connection was not closed")
		}
		if d.Count() != 1 {
			t.Errorf("Count = %d, want 1", d.Count())
		}
		if !d.EmitToUser("alice", "ping", nil) {
			t.Error("emit after reconnect failed")
		}
		if got := second.lastEvent(t).Event; got != "ping" {
			t.Errorf("new connection got %q, want ping", got)
		}
	})
}

func TestUnregister(t *testing.T) {
	t.Run("removes the user and rebroadcasts", func(t *testing.T) {
		d := NewDirectory()
		alice := &fakeConn{}
		bob := &fakeConn{}
		d.Register("alice", alice)
		d.Register("bob", bob)

		d.Unregister("alice", alice)

		if d.Count() != 1 {
			t.Errorf("Count = %d, want 1", d.Count())
		}
		roster := rosterOf(t, bob.lastEvent(t))
		if len(roster) != 1 || roster[0] != "bob" {
			t.Errorf("roster = %v, want [bob]", roster)
		}
	})

	t.Run("a stale handle does not evict a newer connection", func(t *testing.T) {
		d := NewDirectory()
		first := &fakeConn{}
		second := &fakeConn{}
		d.Register("alice", first)
		d.Register("alice", second)

		// The goroutine reading the old socket fires its deferred cleanup
		// after the reconnect already replaced the entry.
		d.Unregister("alice", first)

		if d.Count() != 1 {
			t.Errorf("Count = %d, want the new connection to survive", d.Count())
		}
		if !d.EmitToUser("alice", "ping", nil) {
			t.Error("emit failed after stale unregister")
		}
	})
}

func TestEmitToUser(t *testing.T) {
	t.Run("delivers the event envelope", func(t *testing.T) {
		d := NewDirectory()
		alice := &fakeConn{}
		d.Register("alice", alice)

		ok := d.EmitToUser("alice", "payment_completed", map[string]interface{}{"receipt": "ABC123XYZ"})
		if !ok {
			t.Fatal("EmitToUser returned false for a connected user")
		}
		ev := alice.lastEvent(t)
		if ev.Event != "payment_completed" {
			t.Errorf("event = %q, want payment_completed", ev.Event)
		}
		data := ev.Data.(map[string]interface{})
		if data["receipt"] != "ABC123XYZ" {
			t.Errorf("data = %v, want the receipt", data)
		}
	})

	t.Run("returns false when the user has no connection", func(t *testing.T) {
		d := NewDirectory()
		if d.EmitToUser("nobody", "payment_completed", nil) {
			t.Error("EmitToUser returned true for an absent user")
		}
	})

	t.Run("returns false when the write fails", func(t *testing.T) {
		d := NewDirectory()
		alice := &fakeConn{}
		d.Register("alice", alice)
		alice.mu.Lock()
		alice.writeErr = errors.New("broken pipe")
		alice.mu.Unlock()

		if d.EmitToUser("alice", "payment_completed", nil) {
			t.Error("EmitToUser returned true on a write error")
		}
	})
}

func TestDirectoryConcurrency(t *testing.T) {
	d := NewDirectory()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("user-%d", n%4)
			conn := &fakeConn{}
			d.Register(id, conn)
			d.EmitToUser(id, "ping", nil)
			d.OnlineUserIDs()
			d.Unregister(id, conn)
		}(i)
	}
	wg.Wait()

	if d.Count() != 0 {
		t.Errorf("Count = %d after all disconnects, want 0", d.Count())
	}
}
