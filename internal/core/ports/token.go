package ports

import "github.com/bizdesk/customer-service/internal/core/domain"

// TokenClaims are the application claims carried by an access token.
type TokenClaims struct {
	UserID string
	Role   domain.Role
}

// TokenIssuer signs access tokens.
type TokenIssuer interface {
	Issue(claims TokenClaims) (string, error)
}

// TokenVerifier validates access tokens and returns their claims.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}
