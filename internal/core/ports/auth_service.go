package ports

import (
	"context"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

// RegisterInput carries the fields accepted at registration. Role is optional.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.Role
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	AccessToken string             `json:"accessToken"`
	User        domain.UserProfile `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.UserProfile, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}
