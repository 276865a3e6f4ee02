package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bizdesk/customer-service/internal/core/ports"
	"github.com/bizdesk/customer-service/internal/pkg/metrics"
)

const (
	defaultPage  = 1
	defaultLimit = 10
)

// CustomerHandler handles HTTP requests for the customer directory.
type CustomerHandler struct {
	service ports.CustomerService
}

func NewCustomerHandler(service ports.CustomerService) *CustomerHandler {
	return &CustomerHandler{service: service}
}

func observe(operation string, err error) {
	metrics.CustomerOperationsTotal.WithLabelValues(operation, metrics.Result(err)).Inc()
}

// Create handles POST /customers.
//
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createCustomerRequest  true  "Customer"
// @Success      201   {object}  domain.Customer
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /customers [post]
func (h *CustomerHandler) Create(c echo.Context) error {
	var req createCustomerRequest
	if err := bindAndValidate(c, &req); err != nil {
		observe("create", err)
		return err
	}

	customer, err := h.service.Create(c.Request().Context(), ports.CreateCustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	observe("create", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, customer)
}

// List handles GET /customers.
//
// @Summary      List customers
// @Description  Newest first. page and limit must be positive integers.
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number"     default(1)
// @Param        limit  query     int  false  "Items per page"  default(10)
// @Success      200    {object}  customerPageResponse
// @Failure      400    {object}  errorResponse
// @Failure      401    {object}  errorResponse
// @Failure      403    {object}  errorResponse
// @Failure      500    {object}  errorResponse
// @Router       /customers [get]
func (h *CustomerHandler) List(c echo.Context) error {
	page, err := queryInt(c, "page", defaultPage)
	if err != nil {
		observe("list", err)
		return err
	}
	limit, err := queryInt(c, "limit", defaultLimit)
	if err != nil {
		observe("list", err)
		return err
	}

	result, err := h.service.FindAll(c.Request().Context(), page, limit)
	observe("list", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customerPageResponse(*result))
}

// Get handles GET /customers/:id.
//
// @Summary      Get a customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  domain.Customer
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		observe("get", err)
		return err
	}

	customer, err := h.service.FindOne(c.Request().Context(), id)
	observe("get", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// Update handles PATCH /customers/:id. Omitted fields are left unchanged.
//
// @Summary      Update a customer
// @Tags         customers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                    true  "Customer ID"
// @Param        body  body      updateCustomerRequest  true  "Fields to change"
// @Success      200   {object}  domain.Customer
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /customers/{id} [patch]
func (h *CustomerHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		observe("update", err)
		return err
	}
	var req updateCustomerRequest
	if err := bindAndValidate(c, &req); err != nil {
		observe("update", err)
		return err
	}

	customer, err := h.service.Update(c.Request().Context(), id, req.toChanges())
	observe("update", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}

// Remove handles DELETE /customers/:id and returns the deleted record.
//
// @Summary      Delete a customer
// @Tags         customers
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Customer ID"
// @Success      200  {object}  domain.Customer
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Remove(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		observe("delete", err)
		return err
	}

	customer, err := h.service.Remove(c.Request().Context(), id)
	observe("delete", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, customer)
}
