package domain

import "time"

type Media struct {
	ID       string `db:"id" json:"id"`
	Link     string `db:"link" json:"link"`
	FileType string `db:"file_type" json:"file_type"`
}

type Chat struct {
	ID        string    `db:"id" json:"id"`
	Message   string    `db:"message" json:"message"`
	IsRead    bool      `db:"is_read" json:"is_read"`
	SenderID  string    `db:"sender_id" json:"sender_id"`
	RoomID    string    `db:"room_id" json:"room_id"`
	Media     []Media   `json:"media,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
