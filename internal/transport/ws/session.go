package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PeterKahenya/rapt/internal/domain"

	"github.com/gorilla/websocket"
)

// Интерфейсы внешних коллабораторов объявлены на стороне потребителя:
// realtime-ядру от них нужно ровно это и ничего больше.

type Identity interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
	Authorize(ctx context.Context, user *domain.User, perm string) (bool, error)
	TouchLastSeen(ctx context.Context, userID string) (*domain.User, error)
}

type Directory interface {
	Resolve(ctx context.Context, roomID string) (*domain.Room, error)
}

type Store interface {
	CreateMessage(ctx context.Context, roomID, senderID, text string, media []domain.Media) (*domain.Chat, error)
	MarkRead(ctx context.Context, messageID string) (*domain.Chat, error)
}

// session — состояние одного активного соединения. Кадры обрабатываются
// строго по одному: следующий не читается, пока текущий не дообработан
// (persist + broadcast), что даёт порядок в рамках соединения.
type session struct {
	registry *Registry
	store    Store

	user      *domain.User
	roomID    string // durable id комнаты
	socketKey string // ключ комнаты в реестре
	conn      *wsConn
}

func (s *session) run(ctx context.Context, identity Identity, pingEvery time.Duration) {
	c := s.conn.conn
	c.SetReadLimit(1 << 20)
	c.SetReadDeadline(time.Now().Add(2 * pingEvery))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(2 * pingEvery))
		_, _ = identity.TouchLastSeen(ctx, s.user.ID)
		return nil
	})

	for {
		_, raw, err := c.ReadMessage()
		if err != nil {
			// дисконнект клиента либо idle timeout; cleanup — за вызывающим
			s.conn.closeWith(websocket.CloseNormalClosure, "")
			return
		}

		if err := s.handleFrame(ctx, raw); err != nil {
			code := websocket.CloseInternalServerErr
			if isProtocolErr(err) {
				code = websocket.ClosePolicyViolation
			}
			slog.Warn("ws session terminated",
				"room", s.roomID, "user", s.user.ID, "err", err)
			s.conn.closeWith(code, "")
			return
		}
	}
}

// handleFrame обрабатывает один входящий кадр до конца. Ненулевая ошибка
// фатальна для сессии; мягкие отказы (read несуществующего сообщения)
// глотаются здесь.
func (s *session) handleFrame(ctx context.Context, raw []byte) error {
	env, err := Decode(raw)
	if err != nil {
		return err
	}

	profile := s.user.Profile()

	switch env.Kind {
	case KindChat:
		var p ChatPayload
		if err := json.Unmarshal(env.Obj, &p); err != nil {
			return fmt.Errorf("%w: chat payload: %v", ErrMalformedFrame, err)
		}
		media := make([]domain.Media, 0, len(p.Media))
		for _, md := range p.Media {
			media = append(media, domain.Media{Link: md.Link, FileType: md.FileType})
		}

		chat, err := s.store.CreateMessage(ctx, s.roomID, s.user.ID, p.Message, media)
		if err != nil {
			// неперсистированное сообщение не уходит в комнату даже частично
			return fmt.Errorf("persist chat: %w", err)
		}
		return s.broadcast(Envelope{Kind: KindChat, User: profile, Obj: marshalObj(chat)})

	case KindRead:
		var p ReadPayload
		if err := json.Unmarshal(env.Obj, &p); err != nil {
			return fmt.Errorf("%w: read payload: %v", ErrMalformedFrame, err)
		}

		chat, err := s.store.MarkRead(ctx, p.ID)
		if errors.Is(err, domain.ErrMessageNotFound) {
			// soft-fail: ни broadcast, ни ошибки отправителю, сессия живёт
			slog.Debug("ws read: message not found",
				"room", s.roomID, "user", s.user.ID, "message_id", p.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("mark read: %w", err)
		}
		return s.broadcast(Envelope{Kind: KindRead, User: profile, Obj: marshalObj(chat)})

	default:
		// presence-сигналы: чистый relay, payload — серверный снимок профиля
		return s.broadcast(Envelope{Kind: env.Kind, User: profile})
	}
}

func (s *session) broadcast(env Envelope) error {
	frame, err := Encode(env)
	if err != nil {
		return err
	}
	s.registry.Broadcast(s.socketKey, frame)
	return nil
}

func isProtocolErr(err error) bool {
	return errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrUnknownKind) ||
		errors.Is(err, ErrServerOnlyKind) ||
		errors.Is(err, ErrPayloadRequired)
}
