package ws

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/PeterKahenya/rapt/internal/domain"
)

// Conn — то, что реестру нужно от соединения: неблокирующая доставка кадра.
type Conn interface {
	Send(frame []byte) error
	UserID() string
}

// Registry — общее мутабельное состояние realtime-слоя:
// socketKey → userID → соединение. Все мутации и чтения под broadcast
// линеаризованы одним RWMutex.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]map[string]Conn)}
}

// Join регистрирует соединение и рассылает ONLINE всей комнате (включая
// вошедшего). Повторное подключение того же пользователя ЗАМЕНЯЕТ прежнее
// соединение, не закрывая его — reconnect-replace, не reject.
func (r *Registry) Join(key string, profile domain.Profile, c Conn) {
	r.mu.Lock()
	room, ok := r.rooms[key]
	if !ok {
		room = make(map[string]Conn)
		r.rooms[key] = room
	}
	room[profile.ID] = c
	r.mu.Unlock()

	r.broadcastEvent(key, KindOnline, profile)
}

// Leave снимает регистрацию и рассылает OFFLINE оставшимся. Идемпотентно:
// отключение соединения, уже вытесненного reconnect-ом, не трогает новое.
func (r *Registry) Leave(key string, profile domain.Profile, c Conn) {
	r.mu.Lock()
	room, ok := r.rooms[key]
	if !ok || room[profile.ID] != c {
		r.mu.Unlock()
		return
	}
	delete(room, profile.ID)
	if len(room) == 0 {
		delete(r.rooms, key)
	}
	r.mu.Unlock()

	r.broadcastEvent(key, KindOffline, profile)
}

// Broadcast доставляет кадр каждому соединению комнаты. Доставка
// best-effort: отказ одного получателя не блокирует и не срывает остальных.
func (r *Registry) Broadcast(key string, frame []byte) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for userID, c := range r.rooms[key] {
		if err := c.Send(frame); err != nil {
			slog.Debug("ws broadcast drop", "user", userID, "err", err)
		}
	}
}

// Participants возвращает user id активных соединений комнаты.
func (r *Registry) Participants(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[key]
	out := make([]string, 0, len(room))
	for userID := range room {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) broadcastEvent(key string, kind Kind, profile domain.Profile) {
	frame, err := Encode(Envelope{Kind: kind, User: profile})
	if err != nil {
		slog.Error("ws encode presence event", "kind", kind, "err", err)
		return
	}
	r.Broadcast(key, frame)
}
