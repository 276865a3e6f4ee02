package ports

import (
	"context"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

// UserRepository defines the persistence operations for user credentials.
type UserRepository interface {
	// CreateUser stores a new user. A duplicate email yields a
	// *domain.UniqueViolationError.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindUserByEmail returns domain.ErrNotFound when no user has the email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
