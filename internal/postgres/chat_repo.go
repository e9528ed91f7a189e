package postgres

import (
	"context"
	"errors"

	"github.com/PeterKahenya/rapt/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Save вставляет сообщение и его media одной транзакцией.
func (r *ChatRepository) Save(ctx context.Context, roomID, senderID, text string, media []domain.Media) (*domain.Chat, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var m domain.Chat
	err = tx.QueryRow(ctx, `
		INSERT INTO chats (room_id, sender_id, message)
		VALUES ($1, $2, $3)
		RETURNING id, message, is_read, sender_id, room_id, created_at`,
		roomID, senderID, text).
		Scan(&m.ID, &m.Message, &m.IsRead, &m.SenderID, &m.RoomID, &m.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, md := range media {
		var out domain.Media
		err := tx.QueryRow(ctx, `
			INSERT INTO media (chat_id, link, file_type)
			VALUES ($1, $2, $3)
			RETURNING id, link, file_type`,
			m.ID, md.Link, md.FileType).
			Scan(&out.ID, &out.Link, &out.FileType)
		if err != nil {
			return nil, err
		}
		m.Media = append(m.Media, out)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepository) Get(ctx context.Context, id string) (*domain.Chat, error) {
	var m domain.Chat
	err := r.db.QueryRow(ctx, `
		SELECT id, message, is_read, sender_id, room_id, created_at
		FROM chats WHERE id=$1`, id).
		Scan(&m.ID, &m.Message, &m.IsRead, &m.SenderID, &m.RoomID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	if err := r.loadMedia(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// MarkRead ставит is_read=true и возвращает обновлённое сообщение.
func (r *ChatRepository) MarkRead(ctx context.Context, id string) (*domain.Chat, error) {
	var m domain.Chat
	err := r.db.QueryRow(ctx, `
		UPDATE chats SET is_read=true
		WHERE id=$1
		RETURNING id, message, is_read, sender_id, room_id, created_at`, id).
		Scan(&m.ID, &m.Message, &m.IsRead, &m.SenderID, &m.RoomID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMessageNotFound
		}
		return nil, err
	}
	if err := r.loadMedia(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChatRepository) loadMedia(ctx context.Context, m *domain.Chat) error {
	rows, err := r.db.Query(ctx,
		`SELECT id, link, file_type FROM media WHERE chat_id=$1 ORDER BY id`, m.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var md domain.Media
		if err := rows.Scan(&md.ID, &md.Link, &md.FileType); err != nil {
			return err
		}
		m.Media = append(m.Media, md)
	}
	return rows.Err()
}
