package service

import (
	"context"

	"github.com/PeterKahenya/rapt/internal/domain"
	"github.com/PeterKahenya/rapt/internal/postgres"
	"github.com/PeterKahenya/rapt/internal/security"
)

// AuthService — identity provider + authorization service для realtime-слоя.
type AuthService struct {
	users *postgres.UserRepository
	jwt   *security.JWTVerifier
}

func NewAuthService(users *postgres.UserRepository, jwt *security.JWTVerifier) *AuthService {
	return &AuthService{users: users, jwt: jwt}
}

// Authenticate: токен → пользователь. sub токена — телефон.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.jwt.ParseAndValidate(token)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByPhone(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}
	if !user.IsVerified {
		return nil, domain.ErrUserUnverified
	}
	return user, nil
}

// Authorize — проверка permission по codename. Суперпользователь может всё.
func (s *AuthService) Authorize(ctx context.Context, user *domain.User, perm string) (bool, error) {
	if user.IsSuperuser {
		return true, nil
	}
	return s.users.HasPermission(ctx, user.ID, perm)
}

func (s *AuthService) TouchLastSeen(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.TouchLastSeen(ctx, userID)
}
