package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

type stubCustomerService struct {
	createFn  func(ctx context.Context, in ports.CreateCustomerInput) (*domain.Customer, error)
	findAllFn func(ctx context.Context, page, limit int) (*ports.CustomerPage, error)
	findOneFn func(ctx context.Context, id int64) (*domain.Customer, error)
	updateFn  func(ctx context.Context, id int64, ch domain.CustomerChanges) (*domain.Customer, error)
	removeFn  func(ctx context.Context, id int64) (*domain.Customer, error)
}

func (s *stubCustomerService) Create(ctx context.Context, in ports.CreateCustomerInput) (*domain.Customer, error) {
	return s.createFn(ctx, in)
}

func (s *stubCustomerService) FindAll(ctx context.Context, page, limit int) (*ports.CustomerPage, error) {
	return s.findAllFn(ctx, page, limit)
}

func (s *stubCustomerService) FindOne(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.findOneFn(ctx, id)
}

func (s *stubCustomerService) Update(ctx context.Context, id int64, ch domain.CustomerChanges) (*domain.Customer, error) {
	return s.updateFn(ctx, id, ch)
}

func (s *stubCustomerService) Remove(ctx context.Context, id int64) (*domain.Customer, error) {
	return s.removeFn(ctx, id)
}

var sampleCustomer = domain.Customer{
	ID:        7,
	Name:      "Acme",
	Email:     "acme@example.com",
	Phone:     "+100",
	CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
}

func TestCustomerHandler_Create(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		createFn: func(_ context.Context, in ports.CreateCustomerInput) (*domain.Customer, error) {
			if in.Name != "Acme" || in.Email != "acme@example.com" || in.Phone != "+100" {
				t.Fatalf("unexpected input: %+v", in)
			}
			c := sampleCustomer
			return &c, nil
		},
	})

	c, rec := jsonContext(e, http.MethodPost, "/customers", `{"name":"Acme","email":"acme@example.com","phone":"+100"}`)
	if err := handler.Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != float64(7) || resp["createdAt"] == nil || resp["updatedAt"] == nil {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestCustomerHandler_Create_MissingPhone(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{})

	c, _ := jsonContext(e, http.MethodPost, "/customers", `{"name":"Acme","email":"acme@example.com"}`)
	if code := httpCode(t, handler.Create(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCustomerHandler_List_Defaults(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		findAllFn: func(_ context.Context, page, limit int) (*ports.CustomerPage, error) {
			if page != 1 || limit != 10 {
				t.Fatalf("expected defaults 1/10, got %d/%d", page, limit)
			}
			return &ports.CustomerPage{Page: page, Limit: limit, TotalRecords: 1, TotalPages: 1, Data: []domain.Customer{sampleCustomer}}, nil
		},
	})

	c, rec := jsonContext(e, http.MethodGet, "/customers", "")
	if err := handler.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"page", "limit", "totalRecords", "totalPages", "data"} {
		if _, ok := resp[key]; !ok {
			t.Fatalf("missing %q in %+v", key, resp)
		}
	}
}

func TestCustomerHandler_List_BadQuery(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		findAllFn: func(context.Context, int, int) (*ports.CustomerPage, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	})

	for _, target := range []string{"/customers?page=abc", "/customers?limit=1.5"} {
		c, _ := jsonContext(e, http.MethodGet, target, "")
		if code := httpCode(t, handler.List(c)); code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, code)
		}
	}
}

func TestCustomerHandler_List_ServiceBadRequest(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		findAllFn: func(_ context.Context, page, limit int) (*ports.CustomerPage, error) {
			if limit != 0 {
				t.Fatalf("limit must be passed through unclamped, got %d", limit)
			}
			return nil, domain.ErrInvalidLimit
		},
	})

	c, _ := jsonContext(e, http.MethodGet, "/customers?limit=0", "")
	if err := handler.List(c); err != domain.ErrInvalidLimit {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestCustomerHandler_Get(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		findOneFn: func(_ context.Context, id int64) (*domain.Customer, error) {
			if id != 7 {
				return nil, domain.ErrCustomerNotFound
			}
			c := sampleCustomer
			return &c, nil
		},
	})

	c, rec := jsonContext(e, http.MethodGet, "/customers/7", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	if err := handler.Get(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	c, _ = jsonContext(e, http.MethodGet, "/customers/8", "")
	c.SetParamNames("id")
	c.SetParamValues("8")
	if err := handler.Get(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	c, _ = jsonContext(e, http.MethodGet, "/customers/x", "")
	c.SetParamNames("id")
	c.SetParamValues("x")
	if code := httpCode(t, handler.Get(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCustomerHandler_Update_PassesOnlyProvidedFields(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		updateFn: func(_ context.Context, id int64, ch domain.CustomerChanges) (*domain.Customer, error) {
			if ch.Phone == nil || *ch.Phone != "+999" {
				t.Fatalf("expected phone change, got %+v", ch)
			}
			if ch.Name != nil || ch.Email != nil || ch.Address != nil {
				t.Fatalf("unexpected fields in change set: %+v", ch)
			}
			c := sampleCustomer
			c.Phone = *ch.Phone
			return &c, nil
		},
	})

	c, rec := jsonContext(e, http.MethodPatch, "/customers/7", `{"phone":"+999"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	if err := handler.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCustomerHandler_Update_InvalidEmail(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{})

	c, _ := jsonContext(e, http.MethodPatch, "/customers/7", `{"email":"nope"}`)
	c.SetParamNames("id")
	c.SetParamValues("7")
	if code := httpCode(t, handler.Update(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestCustomerHandler_Remove(t *testing.T) {
	e := newTestEcho()
	handler := NewCustomerHandler(&stubCustomerService{
		removeFn: func(_ context.Context, id int64) (*domain.Customer, error) {
			c := sampleCustomer
			return &c, nil
		},
	})

	c, rec := jsonContext(e, http.MethodDelete, "/customers/7", "")
	c.SetParamNames("id")
	c.SetParamValues("7")
	if err := handler.Remove(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp domain.Customer
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.ID != 7 {
		t.Fatalf("expected deleted record, got %+v", resp)
	}
}
