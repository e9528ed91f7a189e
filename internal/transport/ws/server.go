package ws

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PeterKahenya/rapt/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// PermCreateChats — permission, требуемый для realtime-сессии.
const PermCreateChats = "create_chats"

type Server struct {
	upgrader  websocket.Upgrader
	registry  *Registry
	identity  Identity
	directory Directory
	store     Store

	pingEvery time.Duration
}

func NewServer(registry *Registry, identity Identity, directory Directory, store Store) *Server {
	return &Server{
		registry:  registry,
		identity:  identity,
		directory: directory,
		store:     store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{id}?access_token=...
//
// Комната адресуется durable id. Отказ handshake после upgrade закрывается
// кодом 1008 (policy violation) без структурного error-кадра.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing access_token", http.StatusUnauthorized)
		return
	}

	raw, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "room", roomID, "err", err)
		return
	}
	ctx := r.Context()

	// Connecting → Authorizing
	user, err := s.identity.Authenticate(ctx, token)
	if err != nil {
		slog.Warn("ws authenticate failed", "room", roomID, "err", err)
		rejectHandshake(raw, "unauthorized")
		return
	}
	allowed, err := s.identity.Authorize(ctx, user, PermCreateChats)
	if err != nil || !allowed {
		slog.Warn("ws authorize failed", "room", roomID, "user", user.ID, "err", err)
		rejectHandshake(raw, "forbidden")
		return
	}

	// Authorizing → JoiningRoom
	room, err := s.directory.Resolve(ctx, roomID)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			slog.Error("ws resolve room", "room", roomID, "err", err)
		}
		rejectHandshake(raw, "unknown room")
		return
	}
	if !room.IsMember(user.ID) {
		// соединение так и не вошло в комнату — никакого broadcast
		slog.Warn("ws membership denied", "room", roomID, "user", user.ID)
		rejectHandshake(raw, "not a member")
		return
	}

	// JoiningRoom → Active
	if fresh, err := s.identity.TouchLastSeen(ctx, user.ID); err == nil {
		user = fresh
	}

	c := newWsConn(raw, user.ID)
	go c.writeLoop(s.pingEvery)
	s.registry.Join(room.SocketKey, user.Profile(), c) // ONLINE всей комнате

	sess := &session{
		registry:  s.registry,
		store:     s.store,
		user:      user,
		roomID:    room.ID,
		socketKey: room.SocketKey,
		conn:      c,
	}

	// Active → Closing → Closed: дерегистрация и OFFLINE обязаны отработать
	// при любом исходе сессии.
	defer func() {
		profile := user.Profile()
		if fresh, err := s.identity.TouchLastSeen(ctx, user.ID); err == nil {
			profile = fresh.Profile()
		}
		s.registry.Leave(room.SocketKey, profile, c)
		c.closeWith(websocket.CloseNormalClosure, "")
	}()

	sess.run(ctx, s.identity, s.pingEvery)
}

func bearerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("access_token")); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// rejectHandshake роняет только что прошедший upgrade transport с policy
// violation. Структурного error-кадра у протокола нет.
func rejectHandshake(c *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = c.Close()
}
