package ports

import (
	"context"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

// CustomerRepository defines persistence operations for customers.
// Lookups by ID return domain.ErrNotFound when the row is absent, and writes
// that collide on email or phone return a *domain.UniqueViolationError.
type CustomerRepository interface {
	CreateCustomer(ctx context.Context, c *domain.Customer) (*domain.Customer, error)
	FindCustomerByID(ctx context.Context, id int64) (*domain.Customer, error)
	// ListCustomers returns up to take customers after skipping skip rows,
	// newest first (created_at DESC, id DESC).
	ListCustomers(ctx context.Context, skip, take int) ([]domain.Customer, error)
	CountCustomers(ctx context.Context) (int64, error)
	UpdateCustomer(ctx context.Context, id int64, changes domain.CustomerChanges) (*domain.Customer, error)
	// DeleteCustomer removes the row and returns it as it was before deletion.
	DeleteCustomer(ctx context.Context, id int64) (*domain.Customer, error)
}
