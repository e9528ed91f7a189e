package service

import (
	"context"
	"errors"
	"strings"

	"github.com/PeterKahenya/rapt/internal/domain"
	"github.com/PeterKahenya/rapt/internal/postgres"
)

const maxMessageLen = 4000

// ChatService — message store: единственный владелец durable-сообщений.
type ChatService struct {
	chats *postgres.ChatRepository
	rooms *postgres.RoomRepository
}

func NewChatService(chats *postgres.ChatRepository, rooms *postgres.RoomRepository) *ChatService {
	return &ChatService{chats: chats, rooms: rooms}
}

// CreateMessage пишет новое сообщение. Членство отправителя проверяется
// повторно на момент создания, а не только на handshake.
func (s *ChatService) CreateMessage(ctx context.Context, roomID, senderID, text string, media []domain.Media) (*domain.Chat, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty message")
	}
	if len(text) > maxMessageLen {
		return nil, errors.New("message too long")
	}

	room, err := s.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(senderID) {
		return nil, domain.ErrNotAMember
	}

	return s.chats.Save(ctx, roomID, senderID, text, media)
}

func (s *ChatService) MarkRead(ctx context.Context, messageID string) (*domain.Chat, error) {
	return s.chats.MarkRead(ctx, messageID)
}

func (s *ChatService) GetMessage(ctx context.Context, messageID string) (*domain.Chat, error) {
	return s.chats.Get(ctx, messageID)
}
