package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PeterKahenya/rapt/internal/domain"
	"github.com/PeterKahenya/rapt/internal/postgres"
)

func TestCreateRoom_MembershipInvariants(t *testing.T) {
	svc, err := NewRoomService(postgres.NewRoomRepository(nil))
	if err != nil {
		t.Fatalf("new room service: %v", err)
	}

	// валидация отсекает запрос до обращения к БД
	_, err = svc.CreateRoom(context.Background(), []string{"only-one"})
	if !errors.Is(err, domain.ErrTooFewMembers) {
		t.Fatalf("expected ErrTooFewMembers, got %v", err)
	}

	_, err = svc.CreateRoom(context.Background(), []string{"a", "b", "a"})
	if !errors.Is(err, domain.ErrDuplicateMember) {
		t.Fatalf("expected ErrDuplicateMember, got %v", err)
	}
}

func TestSocketKey_LengthAndAlphabet(t *testing.T) {
	svc, err := NewRoomService(postgres.NewRoomRepository(nil))
	if err != nil {
		t.Fatalf("new room service: %v", err)
	}

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		key := svc.socketKey()
		if len(key) != socketKeyLength {
			t.Fatalf("expected %d chars, got %d: %q", socketKeyLength, len(key), key)
		}
		for _, r := range key {
			if !strings.ContainsRune(socketKeyAlphabet, r) {
				t.Fatalf("char %q outside alphabet in %q", r, key)
			}
		}
		if _, dup := seen[key]; dup {
			t.Fatalf("socket key collision: %q", key)
		}
		seen[key] = struct{}{}
	}
}
