package postgres

import (
	"context"
	"errors"

	"github.com/PeterKahenya/rapt/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create вставляет комнату и членство одной транзакцией.
func (r *RoomRepository) Create(ctx context.Context, room *domain.Room) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO chatrooms (socket_room_id)
		VALUES ($1)
		RETURNING id, created_at`, room.SocketKey).
		Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return err
	}

	for _, uid := range room.MemberIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO chatroom_members (chatroom_id, user_id)
			VALUES ($1, $2)`, room.ID, uid); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get возвращает комнату вместе со списком member id.
func (r *RoomRepository) Get(ctx context.Context, id string) (*domain.Room, error) {
	var rm domain.Room
	err := r.db.QueryRow(ctx,
		`SELECT id, socket_room_id, created_at FROM chatrooms WHERE id=$1`, id).
		Scan(&rm.ID, &rm.SocketKey, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		`SELECT user_id FROM chatroom_members WHERE chatroom_id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, err
		}
		rm.MemberIDs = append(rm.MemberIDs, uid)
	}
	return &rm, rows.Err()
}
