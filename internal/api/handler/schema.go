package handler

import (
	"github.com/bizdesk/customer-service/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error" example:"customer not found"`
}

// --- Auth ---

type registerRequest struct {
	Name     string `json:"name"     validate:"required"          example:"Ada Lovelace"`
	Email    string `json:"email"    validate:"required,email"    example:"ada@example.com"`
	Password string `json:"password" validate:"required,min=6"    example:"s3cret!"`
	Role     string `json:"role"     validate:"omitempty,oneof=ADMIN EMPLOYEE" example:"EMPLOYEE"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required" example:"ada@example.com"`
	Password string `json:"password" validate:"required" example:"s3cret!"`
}

type loginResponse struct {
	AccessToken string             `json:"accessToken"`
	User        domain.UserProfile `json:"user"`
}

// --- Customers ---

type createCustomerRequest struct {
	Name    string `json:"name"    validate:"required"       example:"Acme Corp"`
	Email   string `json:"email"   validate:"required,email" example:"billing@acme.test"`
	Phone   string `json:"phone"   validate:"required"       example:"+52 55 1234 5678"`
	Address string `json:"address"                           example:"Av. Reforma 1, CDMX"`
}

type updateCustomerRequest struct {
	Name    *string `json:"name"    validate:"omitempty,min=1"`
	Email   *string `json:"email"   validate:"omitempty,email"`
	Phone   *string `json:"phone"   validate:"omitempty,min=1"`
	Address *string `json:"address"`
}

type customerPageResponse struct {
	Page         int               `json:"page"         example:"1"`
	Limit        int               `json:"limit"        example:"10"`
	TotalRecords int64             `json:"totalRecords" example:"42"`
	TotalPages   int64             `json:"totalPages"   example:"5"`
	Data         []domain.Customer `json:"data"`
}

func (r updateCustomerRequest) toChanges() domain.CustomerChanges {
	return domain.CustomerChanges{
		Name:    r.Name,
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
	}
}
