package postgres

import (
	"context"
	"errors"

	"github.com/PeterKahenya/rapt/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, phone, name, is_superuser, is_active, is_verified, last_seen, created_at`

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone=$1`, phone)
	return scanUser(row)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Phone, &u.Name, &u.IsSuperuser, &u.IsActive,
		&u.IsVerified, &u.LastSeen, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// TouchLastSeen обновляет last_seen и возвращает свежее значение.
func (r *UserRepository) TouchLastSeen(ctx context.Context, userID string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE users SET last_seen=now()
		WHERE id=$1
		RETURNING `+userColumns, userID)
	return scanUser(row)
}

// HasPermission — проверка роль→permission по codename.
func (r *UserRepository) HasPermission(ctx context.Context, userID, codename string) (bool, error) {
	var ok bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN permissions p ON p.id = rp.permission_id
			WHERE ur.user_id = $1 AND p.codename = $2
		)`, userID, codename).Scan(&ok)
	return ok, err
}
