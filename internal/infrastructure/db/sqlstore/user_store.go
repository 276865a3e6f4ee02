package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

var _ ports.UserRepository = (*Store)(nil)

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.timestamp()
	} else {
		u.CreatedAt = u.CreatedAt.UTC().Truncate(time.Microsecond)
	}

	q := s.dialect.rebind(`INSERT INTO users (id, name, email, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.CreatedAt); err != nil {
		if uv, ok := s.dialect.uniqueViolation(err, "user"); ok {
			return nil, uv
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	q := s.dialect.rebind(`SELECT id, name, email, password_hash, role, created_at FROM users WHERE email = ?`)

	var (
		u    domain.User
		role string
	)
	err := s.db.QueryRowContext(ctx, q, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	u.Role = domain.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
