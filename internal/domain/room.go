package domain

import "time"

// Room — durable-запись комнаты. SocketKey — непрозрачный ключ для
// realtime-реестра, наружу (в транспорт) никогда не отдаётся.
type Room struct {
	ID        string    `db:"id"`
	SocketKey string    `db:"socket_room_id"`
	CreatedAt time.Time `db:"created_at"`

	MemberIDs []string
}

func (r *Room) IsMember(userID string) bool {
	for _, id := range r.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}
