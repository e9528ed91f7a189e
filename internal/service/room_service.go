package service

import (
	"context"
	"fmt"

	"github.com/PeterKahenya/rapt/internal/domain"
	"github.com/PeterKahenya/rapt/internal/postgres"

	"github.com/jaevor/go-nanoid"
)

// Длина и алфавит socket-ключа комнаты. Ключ высокоэнтропийный и
// используется только внутри realtime-реестра.
const (
	socketKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	socketKeyLength   = 50
)

type RoomService struct {
	rooms     *postgres.RoomRepository
	socketKey func() string
}

func NewRoomService(rooms *postgres.RoomRepository) (*RoomService, error) {
	gen, err := nanoid.CustomASCII(socketKeyAlphabet, socketKeyLength)
	if err != nil {
		return nil, fmt.Errorf("socket key generator: %w", err)
	}
	return &RoomService{rooms: rooms, socketKey: gen}, nil
}

// CreateRoom: минимум два уникальных участника (инвариант комнаты).
func (s *RoomService) CreateRoom(ctx context.Context, memberIDs []string) (*domain.Room, error) {
	if len(memberIDs) < 2 {
		return nil, domain.ErrTooFewMembers
	}
	seen := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		if _, dup := seen[id]; dup {
			return nil, domain.ErrDuplicateMember
		}
		seen[id] = struct{}{}
	}

	room := &domain.Room{
		SocketKey: s.socketKey(),
		MemberIDs: memberIDs,
	}
	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Resolve — room directory: durable id → запись комнаты с членством.
func (s *RoomService) Resolve(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.rooms.Get(ctx, roomID)
}
