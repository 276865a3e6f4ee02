package ports

import (
	"context"

	"github.com/bizdesk/customer-service/internal/core/domain"
)

// CreateCustomerInput carries all data needed to create a customer.
type CreateCustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// CustomerPage is one page of the customer listing.
type CustomerPage struct {
	Page         int               `json:"page"`
	Limit        int               `json:"limit"`
	TotalRecords int64             `json:"totalRecords"`
	TotalPages   int64             `json:"totalPages"`
	Data         []domain.Customer `json:"data"`
}

// CustomerService defines use-case operations for the customer directory.
//
// Required roles: Create, Update and Remove need ADMIN; FindAll and FindOne
// accept ADMIN or EMPLOYEE. The service itself does not check roles.
type CustomerService interface {
	Create(ctx context.Context, input CreateCustomerInput) (*domain.Customer, error)
	FindAll(ctx context.Context, page, limit int) (*CustomerPage, error)
	FindOne(ctx context.Context, id int64) (*domain.Customer, error)
	Update(ctx context.Context, id int64, changes domain.CustomerChanges) (*domain.Customer, error)
	Remove(ctx context.Context, id int64) (*domain.Customer, error)
}

// CustomerEventPublisher receives committed customer changes. Implementations
// must not block the caller.
type CustomerEventPublisher interface {
	Publish(ctx context.Context, event domain.CustomerEvent)
}
