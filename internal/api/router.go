// Package api wires the HTTP transport: routes, middleware and error rendering.
//
// @title                       bizdesk customer service
// @version                     1.0
// @description                 Credential and customer directory API.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/bizdesk/customer-service/docs"
	"github.com/bizdesk/customer-service/internal/api/handler"
	"github.com/bizdesk/customer-service/internal/api/middleware"
	"github.com/bizdesk/customer-service/internal/core/domain"
	"github.com/bizdesk/customer-service/internal/core/ports"
)

// Dependencies are the collaborators the router needs.
type Dependencies struct {
	Auth      ports.AuthService
	Customers ports.CustomerService
	Tokens    ports.TokenVerifier

	// LoginLimiter throttles POST /auth/login; nil disables throttling.
	LoginLimiter middleware.Limiter
	// TrustProxy takes the client IP from X-Forwarded-For set by a proxy on a
	// private network. Otherwise the socket peer address is used.
	TrustProxy bool
	// OpenRegistration lets anyone call POST /auth/register.
	OpenRegistration bool
	// Readiness lists the dependencies pinged by GET /health/ready.
	Readiness map[string]handler.Pinger
	Swagger   bool
	Logger    zerolog.Logger
	// Registry receives the HTTP metrics and backs /metrics. Defaults to the
	// global Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)
	if deps.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger))
	e.Use(httpMetrics(deps.Registry))

	authenticate := middleware.Auth(deps.Tokens)

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	registerChain := []echo.MiddlewareFunc{}
	if !deps.OpenRegistration {
		registerChain = append(registerChain, authenticate, middleware.RequirePolicy(domain.OpRegisterUser))
	}
	e.POST("/auth/register", authHandler.Register, registerChain...)

	loginChain := []echo.MiddlewareFunc{}
	if deps.LoginLimiter != nil {
		loginChain = append(loginChain, middleware.LoginRateLimit(deps.LoginLimiter, deps.Logger))
	}
	e.POST("/auth/login", authHandler.Login, loginChain...)

	// --- Customer routes ---
	customerHandler := handler.NewCustomerHandler(deps.Customers)
	customers := e.Group("/customers", authenticate)
	customers.POST("", customerHandler.Create, middleware.RequirePolicy(domain.OpCreateCustomer))
	customers.GET("", customerHandler.List, middleware.RequirePolicy(domain.OpListCustomers))
	customers.GET("/:id", customerHandler.Get, middleware.RequirePolicy(domain.OpGetCustomer))
	customers.PATCH("/:id", customerHandler.Update, middleware.RequirePolicy(domain.OpUpdateCustomer))
	customers.DELETE("/:id", customerHandler.Remove, middleware.RequirePolicy(domain.OpDeleteCustomer))

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler(deps.Readiness)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", metricsHandler(deps.Registry))
	if deps.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

func httpMetrics(registry *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Namespace:                 "bizdesk",
		Subsystem:                 "http",
		DoNotUseRequestPathFor404: true,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	}
	if registry != nil {
		cfg.Registerer = registry
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func metricsHandler(registry *prometheus.Registry) echo.HandlerFunc {
	if registry == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: registry})
}
