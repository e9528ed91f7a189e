package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/PeterKahenya/rapt/internal/domain"
)

// fakeConn собирает доставленные кадры в памяти.
type fakeConn struct {
	mu     sync.Mutex
	userID string
	frames [][]byte
	fail   bool
}

func (c *fakeConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return fmt.Errorf("stale connection")
	}
	c.frames = append(c.frames, frame)
	return nil
}

func (c *fakeConn) UserID() string { return c.userID }

func (c *fakeConn) kinds(t *testing.T) []Kind {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Kind, 0, len(c.frames))
	for _, frame := range c.frames {
		var env Envelope
		if err := json.Unmarshal(frame, &env); err != nil {
			t.Fatalf("bad frame %s: %v", frame, err)
		}
		out = append(out, env.Kind)
	}
	return out
}

func profile(id string) domain.Profile {
	return domain.Profile{ID: id, Phone: "+25470000" + id, Name: "user " + id}
}

func TestJoin_BroadcastsOnlineToExistingMembers(t *testing.T) {
	reg := NewRegistry()
	a := &fakeConn{userID: "a"}
	b := &fakeConn{userID: "b"}

	reg.Join("room-key", profile("a"), a)
	reg.Join("room-key", profile("b"), b)

	// a: свой online + online вошедшего b; b: ровно один свой online
	if got := a.kinds(t); len(got) != 2 || got[0] != KindOnline || got[1] != KindOnline {
		t.Fatalf("a expected [online online], got %v", got)
	}
	if got := b.kinds(t); len(got) != 1 || got[0] != KindOnline {
		t.Fatalf("b expected exactly one online, got %v", got)
	}
}

func TestLeave_BroadcastsOfflineAndDeletesEmptyRoom(t *testing.T) {
	reg := NewRegistry()
	a := &fakeConn{userID: "a"}
	b := &fakeConn{userID: "b"}
	reg.Join("k", profile("a"), a)
	reg.Join("k", profile("b"), b)

	reg.Leave("k", profile("b"), b)
	if got := a.kinds(t); got[len(got)-1] != KindOffline {
		t.Fatalf("a expected trailing offline, got %v", got)
	}
	if got := reg.Participants("k"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected participants [a], got %v", got)
	}

	reg.Leave("k", profile("a"), a)
	if got := reg.Participants("k"); len(got) != 0 {
		t.Fatalf("room entry must be gone, got %v", got)
	}

	// комната пересоздаётся чисто
	reg.Join("k", profile("a"), a)
	if got := reg.Participants("k"); len(got) != 1 {
		t.Fatalf("rejoin after room deletion failed: %v", got)
	}
}

func TestJoin_ReconnectReplacesPriorConnection(t *testing.T) {
	reg := NewRegistry()
	old := &fakeConn{userID: "a"}
	reg.Join("k", profile("a"), old)

	replacement := &fakeConn{userID: "a"}
	reg.Join("k", profile("a"), replacement)

	oldSeen := len(old.frames)
	reg.Broadcast("k", []byte(`{"kind":"typing","user":{"id":"a"}}`))

	if len(old.frames) != oldSeen {
		t.Fatalf("replaced connection still receives broadcasts")
	}
	if got := replacement.kinds(t); got[len(got)-1] != KindTyping {
		t.Fatalf("replacement missed broadcast: %v", got)
	}

	// дисконнект вытесненного соединения не должен снять новое
	reg.Leave("k", profile("a"), old)
	if got := reg.Participants("k"); len(got) != 1 || got[0] != "a" {
		t.Fatalf("stale leave evicted replacement: %v", got)
	}
}

func TestBroadcast_FailedRecipientDoesNotAbortOthers(t *testing.T) {
	reg := NewRegistry()
	stale := &fakeConn{userID: "a", fail: true}
	ok := &fakeConn{userID: "b"}
	reg.Join("k", profile("a"), stale)
	reg.Join("k", profile("b"), ok)

	reg.Broadcast("k", []byte(`{"kind":"away","user":{"id":"a"}}`))

	if got := ok.kinds(t); got[len(got)-1] != KindAway {
		t.Fatalf("healthy recipient missed frame: %v", got)
	}
}

func TestRegistry_ConcurrentJoinLeaveInvariant(t *testing.T) {
	reg := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("u%d", i)
			c := &fakeConn{userID: id}
			p := profile(id)
			reg.Join("k", p, c)
			reg.Broadcast("k", []byte(`{"kind":"typing","user":{}}`))
			if i%2 == 0 {
				reg.Leave("k", p, c)
			}
		}(i)
	}
	wg.Wait()

	// остаются ровно нечётные участники
	got := reg.Participants("k")
	if len(got) != 25 {
		t.Fatalf("expected 25 participants after interleaving, got %d: %v", len(got), got)
	}
}
