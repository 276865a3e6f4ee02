package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/customer-service/internal/api/handler"
	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
	"github.com/bizdesk/customer-service/internal/core/service"
	"github.com/bizdesk/customer-service/internal/infrastructure/db/sqlstore"
	"github.com/bizdesk/customer-service/internal/infrastructure/ratelimit"
	"github.com/bizdesk/customer-service/internal/infrastructure/token"
)

const (
	adminEmail    = "root@bizdesk.test"
	adminPassword = "root-password"
)

type testAPI struct {
	e     *echo.Echo
	store *sqlstore.Store
}

func newTestAPI(t *testing.T, limiter *ratelimit.TokenBucket, opts ...func(*Dependencies)) *testAPI {
	t.Helper()
	ctx := context.Background()
	log := zerolog.Nop()

	dsn := "file:" + filepath.Join(t.TempDir(), "api.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	store, err := sqlstore.Open(ctx, "sqlite", dsn, sqlstore.Options{MaxOpenConns: 4}, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(ctx))

	tokens := token.NewJWTIssuer("an-integration-test-secret-of-32-chars", time.Hour)
	auth := service.NewAuthService(store, tokens, log)
	require.NoError(t, auth.EnsureAdmin(ctx, "Root", adminEmail, adminPassword))

	deps := Dependencies{
		Auth:      auth,
		Customers: service.NewCustomerService(store, nil, log),
		Tokens:    tokens,
		Readiness: map[string]handler.Pinger{"store": store},
		Swagger:   true,
		Logger:    log,
		Registry:  prometheus.NewRegistry(),
	}
	if limiter != nil {
		deps.LoginLimiter = limiter
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return &testAPI{e: NewRouter(deps), store: store}
}

func (a *testAPI) do(method, path, bearer, body string) *httptest.ResponseRecorder {
	return a.doWith(method, path, bearer, body, nil)
}

func (a *testAPI) doWith(method, path, bearer, body string, edit func(*http.Request)) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	if edit != nil {
		edit(req)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testAPI) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := a.do(http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"email":%q,"password":%q}`, email, password))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ports.LoginResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.NotEmpty(t, res.AccessToken)
	return res.AccessToken
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestRouter_CustomerLifecycle(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, adminEmail, adminPassword)

	for i := 1; i <= 3; i++ {
		rec := api.do(http.MethodPost, "/customers", admin,
			fmt.Sprintf(`{"name":"Customer %d","email":"c%d@example.com","phone":"+5255000%d"}`, i, i, i))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := api.do(http.MethodGet, "/customers?page=1&limit=2", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page ports.CustomerPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.Limit)
	assert.EqualValues(t, 3, page.TotalRecords)
	assert.EqualValues(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "Customer 3", page.Data[0].Name)

	id := page.Data[0].ID
	rec = api.do(http.MethodPatch, fmt.Sprintf("/customers/%d", id), admin, `{"address":"Av. Reforma 1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated domain.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, "Av. Reforma 1", updated.Address)
	assert.Equal(t, "Customer 3", updated.Name)

	rec = api.do(http.MethodDelete, fmt.Sprintf("/customers/%d", id), admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var removed domain.Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &removed))
	assert.Equal(t, id, removed.ID)

	rec = api.do(http.MethodGet, fmt.Sprintf("/customers/%d", id), admin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "customer not found", errorMessage(t, rec))
}

func TestRouter_EmptyPageBeyondLast(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, adminEmail, adminPassword)

	rec := api.do(http.MethodGet, "/customers?page=5&limit=10", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"page":5,"limit":10,"totalRecords":0,"totalPages":0,"data":[]}`, rec.Body.String())
}

func TestRouter_HugeLimit(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, adminEmail, adminPassword)

	rec := api.do(http.MethodPost, "/customers", admin, `{"name":"A","email":"a@example.com","phone":"111"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodGet, "/customers?page=1&limit=1099511627776", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var page ports.CustomerPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	assert.Len(t, page.Data, 1)
	assert.EqualValues(t, 1, page.TotalPages)

	rec = api.do(http.MethodGet, "/customers?page=2&limit=1099511627776", admin, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestRouter_RoleEnforcement(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, adminEmail, adminPassword)

	rec := api.do(http.MethodPost, "/auth/register", admin,
		`{"name":"Eve","email":"Eve@Example.com","password":"employee-pass"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var profile domain.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &profile))
	assert.Equal(t, domain.RoleEmployee, profile.Role)
	assert.Equal(t, "eve@example.com", profile.Email)
	assert.NotContains(t, rec.Body.String(), "password")

	employee := api.login(t, "eve@example.com", "employee-pass")

	rec = api.do(http.MethodPost, "/customers", employee, `{"name":"X","email":"x@example.com","phone":"1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/customers", employee, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodPost, "/auth/register", employee,
		`{"name":"Mallory","email":"mallory@example.com","password":"whatever"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = api.do(http.MethodGet, "/customers", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "missing authorization header", errorMessage(t, rec))

	rec = api.do(http.MethodGet, "/customers", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_ErrorMapping(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, adminEmail, adminPassword)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		msg    string
	}{
		{"zero page", http.MethodGet, "/customers?page=0", "", http.StatusBadRequest, "page must be greater than 0"},
		{"zero limit", http.MethodGet, "/customers?page=0&limit=0", "", http.StatusBadRequest, "limit must be greater than 0"},
		{"non numeric id", http.MethodGet, "/customers/abc", "", http.StatusBadRequest, "id must be an integer"},
		{"unknown id", http.MethodPatch, "/customers/999", `{"name":"Nobody"}`, http.StatusNotFound, "customer not found"},
		{"missing fields", http.MethodPost, "/customers", `{"name":"Only name"}`, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := api.do(tc.method, tc.path, admin, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			if tc.msg != "" {
				assert.Equal(t, tc.msg, errorMessage(t, rec))
			}
		})
	}
}

func TestRouter_Conflicts(t *testing.T) {
	api := newTestAPI(t, nil)
	admin := api.login(t, adminEmail, adminPassword)

	rec := api.do(http.MethodPost, "/customers", admin, `{"name":"A","email":"a@example.com","phone":"111"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = api.do(http.MethodPost, "/customers", admin, `{"name":"B","email":"a@example.com","phone":"222"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "customer with given email already exists", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/customers", admin, `{"name":"B","email":"b@example.com","phone":"111"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "customer with given phone already exists", errorMessage(t, rec))

	rec = api.do(http.MethodPost, "/auth/register", admin,
		fmt.Sprintf(`{"name":"Dup","email":%q,"password":"secret-pass"}`, strings.ToUpper(adminEmail)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "email already registered", errorMessage(t, rec))
}

func TestRouter_LoginFailuresLookAlike(t *testing.T) {
	api := newTestAPI(t, nil)

	wrongPassword := api.do(http.MethodPost, "/auth/login", "", fmt.Sprintf(`{"email":%q,"password":"nope"}`, adminEmail))
	unknownEmail := api.do(http.MethodPost, "/auth/login", "", `{"email":"ghost@example.com","password":"nope"}`)

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestRouter_LoginThrottled(t *testing.T) {
	api := newTestAPI(t, ratelimit.NewTokenBucket(2, time.Hour))
	body := `{"email":"ghost@example.com","password":"nope"}`

	for i := 0; i < 2; i++ {
		rec := api.do(http.MethodPost, "/auth/login", "", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := api.do(http.MethodPost, "/auth/login", "", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many login attempts", errorMessage(t, rec))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRouter_LoginThrottleIgnoresForwardedHeaders(t *testing.T) {
	api := newTestAPI(t, ratelimit.NewTokenBucket(2, time.Hour))
	body := `{"email":"ghost@example.com","password":"nope"}`

	throttled := 0
	for i := 0; i < 6; i++ {
		rec := api.doWith(http.MethodPost, "/auth/login", "", body, func(r *http.Request) {
			r.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("10.0.0.%d", i))
			r.Header.Set(echo.HeaderXRealIP, fmt.Sprintf("10.0.1.%d", i))
		})
		if rec.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 4, throttled)
}

func TestRouter_LoginThrottleBehindTrustedProxy(t *testing.T) {
	api := newTestAPI(t, ratelimit.NewTokenBucket(1, time.Hour), func(d *Dependencies) { d.TrustProxy = true })
	body := `{"email":"ghost@example.com","password":"nope"}`

	fromClient := func(ip string) func(*http.Request) {
		return func(r *http.Request) {
			r.RemoteAddr = "10.1.2.3:4567"
			r.Header.Set(echo.HeaderXForwardedFor, ip)
		}
	}

	rec := api.doWith(http.MethodPost, "/auth/login", "", body, fromClient("203.0.113.1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.doWith(http.MethodPost, "/auth/login", "", body, fromClient("203.0.113.2"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = api.doWith(http.MethodPost, "/auth/login", "", body, fromClient("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	rec := api.do(http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = api.do(http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"store"`)

	rec = api.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bizdesk_http_requests_total")

	rec = api.do(http.MethodGet, "/swagger/doc.json", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/customers/{id}")
}

func TestNewRouter_CanBeBuiltTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		newTestAPI(t, nil)
		newTestAPI(t, nil)
	})
}
