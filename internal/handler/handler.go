package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/service"
)

// Deps is everything the HTTP layer needs from the rest of the application.
type Deps struct {
	Store       Pinger
	Driver      string
	Books       service.BookService
	Loans       service.LoanService
	Auth        *auth.Service
	Limiter     *IPRateLimiter
	CacheMaxAge int
}

// Register mounts all public routes on the given engine.
func Register(r *gin.Engine, d Deps) {
	h := NewHealthHandler(d.Store, d.Driver)

	// Health checks
	r.GET("/live", h.Liveness)
	r.GET("/ready", h.Readiness)

	// Docs endpoints (root-level)
	RegisterDocs(r)

	// Pagination demo endpoints and the nested loan listing also live at the root.
	NewListerHandler(d.Books).Register(r)
	loans := NewLoanHandler(d.Loans)
	loans.Register(r)

	guard := NewAuthGuard(d.Auth)
	api := r.Group(APIV1Prefix) // Versioning added via single source of truth
	{
		health := api.Group("/health")
		{
			health.GET("/live", h.Liveness)
			health.GET("/ready", h.Readiness)
		}
		NewBookHandler(d.Books, guard, d.CacheMaxAge).Register(api)
		loans.Register(api)
		loans.RegisterBorrowing(api, guard)
		NewAuthHandler(d.Auth, d.Limiter, guard).Register(api)
	}
}

// NewEngine builds a gin engine with recovery and request logging in front of the routes.
func NewEngine(d Deps, middleware ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware...)
	Register(r, d)
	return r
}
