package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PeterKahenya/rapt/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type fakeIdentity struct {
	mu    sync.Mutex
	users map[string]*domain.User // token → user
	perms map[string]bool         // userID → create_chats
}

func (f *fakeIdentity) Authenticate(_ context.Context, token string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeIdentity) Authorize(_ context.Context, user *domain.User, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.perms[user.ID], nil
}

func (f *fakeIdentity) TouchLastSeen(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			now := time.Now()
			u.LastSeen = &now
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

type fakeDirectory struct {
	rooms map[string]*domain.Room
}

func (f *fakeDirectory) Resolve(_ context.Context, roomID string) (*domain.Room, error) {
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room, nil
}

func testUser(id, name string) *domain.User {
	return &domain.User{
		ID: id, Phone: "+2547000000" + id, Name: name,
		IsActive: true, IsVerified: true,
	}
}

func startTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()

	identity := &fakeIdentity{
		users: map[string]*domain.User{
			"tok-alice":  testUser("a", "Alice"),
			"tok-bob":    testUser("b", "Bob"),
			"tok-carol":  testUser("c", "Carol"), // не участник комнаты
			"tok-denied": testUser("d", "Dave"),  // без permission
		},
		perms: map[string]bool{"a": true, "b": true, "c": true},
	}
	directory := &fakeDirectory{rooms: map[string]*domain.Room{
		"room-1": {
			ID:        "room-1",
			SocketKey: "k7f2m9q4x8b1n6c3v5z0l2j8h4g6d1s9a7p3w5e2r4t6y8u0i",
			MemberIDs: []string{"a", "b"},
		},
	}}
	store := newFakeStore()

	srv := NewServer(NewRegistry(), identity, directory, store)
	r := chi.NewRouter()
	r.Get("/ws/rooms/{id}", srv.HandleWS)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts, store
}

func dial(t *testing.T, ts *httptest.Server, roomID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/rooms/" + roomID + "?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", roomID, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, code) {
		t.Fatalf("expected close code %d, got %v", code, err)
	}
}

func TestWS_HandshakeRejectsUnknownToken(t *testing.T) {
	ts, _ := startTestServer(t)
	conn := dial(t, ts, "room-1", "tok-nobody")
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestWS_HandshakeRejectsMissingPermission(t *testing.T) {
	ts, _ := startTestServer(t)
	conn := dial(t, ts, "room-1", "tok-denied")
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestWS_HandshakeRejectsNonMember(t *testing.T) {
	ts, _ := startTestServer(t)
	conn := dial(t, ts, "room-1", "tok-carol")
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestWS_HandshakeRejectsUnknownRoom(t *testing.T) {
	ts, _ := startTestServer(t)
	conn := dial(t, ts, "room-404", "tok-alice")
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestWS_FullChatExchange(t *testing.T) {
	ts, _ := startTestServer(t)

	alice := dial(t, ts, "room-1", "tok-alice")
	if env := readEnvelope(t, alice); env.Kind != KindOnline || env.User.ID != "a" {
		t.Fatalf("alice expected own online, got %+v", env)
	}

	bob := dial(t, ts, "room-1", "tok-bob")
	if env := readEnvelope(t, bob); env.Kind != KindOnline || env.User.ID != "b" {
		t.Fatalf("bob expected own online, got %+v", env)
	}
	if env := readEnvelope(t, alice); env.Kind != KindOnline || env.User.ID != "b" {
		t.Fatalf("alice expected bob online, got %+v", env)
	}

	// CHAT: persist + broadcast обоим, включая отправителя
	err := alice.WriteJSON(map[string]any{
		"kind": "chat",
		"user": map[string]any{"id": "a"},
		"obj":  map[string]any{"message": "Hello"},
	})
	if err != nil {
		t.Fatalf("alice write chat: %v", err)
	}

	var msgID string
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		if env.Kind != KindChat {
			t.Fatalf("expected chat, got %+v", env)
		}
		if !strings.Contains(string(env.Obj), "Hello") {
			t.Fatalf("chat payload lost: %s", env.Obj)
		}
		var chat domain.Chat
		if err := json.Unmarshal(env.Obj, &chat); err != nil {
			t.Fatalf("chat obj: %v", err)
		}
		if chat.ID == "" {
			t.Fatalf("broadcast missing store-assigned id: %s", env.Obj)
		}
		msgID = chat.ID
	}

	// READ по сохранённому id: оба получают read-событие
	err = bob.WriteJSON(map[string]any{
		"kind": "read",
		"user": map[string]any{"id": "b"},
		"obj":  map[string]any{"id": msgID},
	})
	if err != nil {
		t.Fatalf("bob write read: %v", err)
	}
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		if env.Kind != KindRead {
			t.Fatalf("expected read, got %+v", env)
		}
		if !strings.Contains(string(env.Obj), msgID) {
			t.Fatalf("read event for wrong message: %s", env.Obj)
		}
	}

	// TYPING relay: kind сохраняется, echo включая отправителя
	if err := alice.WriteJSON(map[string]any{"kind": "typing", "user": map[string]any{}}); err != nil {
		t.Fatalf("alice write typing: %v", err)
	}
	for _, conn := range []*websocket.Conn{alice, bob} {
		env := readEnvelope(t, conn)
		if env.Kind != KindTyping || env.User.ID != "a" {
			t.Fatalf("expected alice typing, got %+v", env)
		}
	}

	// дисконнект: оставшийся получает offline
	alice.Close()
	if env := readEnvelope(t, bob); env.Kind != KindOffline || env.User.ID != "a" {
		t.Fatalf("bob expected alice offline, got %+v", env)
	}
}

func TestWS_MalformedFrameTerminatesSession(t *testing.T) {
	ts, _ := startTestServer(t)

	alice := dial(t, ts, "room-1", "tok-alice")
	readEnvelope(t, alice) // свой online

	if err := alice.WriteMessage(websocket.TextMessage, []byte(`{"kind":"shout"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	expectClose(t, alice, websocket.ClosePolicyViolation)
}
