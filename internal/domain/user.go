package domain

import "time"

type User struct {
	ID          string     `db:"id"`
	Phone       string     `db:"phone"`
	Name        string     `db:"name"`
	IsSuperuser bool       `db:"is_superuser"`
	IsActive    bool       `db:"is_active"`
	IsVerified  bool       `db:"is_verified"`
	LastSeen    *time.Time `db:"last_seen"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Profile — публичный снимок пользователя, уходит в каждый socket envelope.
// Секреты (коды верификации и т.п.) сюда не попадают никогда.
type Profile struct {
	ID         string     `json:"id"`
	Phone      string     `json:"phone"`
	Name       string     `json:"name"`
	IsVerified bool       `json:"is_verified"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Phone:      u.Phone,
		Name:       u.Name,
		IsVerified: u.IsVerified,
		LastSeen:   u.LastSeen,
	}
}
