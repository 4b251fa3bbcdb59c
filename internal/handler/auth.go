package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/service"
	"github.com/maxviazov/library-service/pkg/response"
)

type AuthHandler struct {
	svc     *auth.Service
	limiter *IPRateLimiter
	guard   *AuthGuard
}

func NewAuthHandler(svc *auth.Service, limiter *IPRateLimiter, guard *AuthGuard) *AuthHandler {
	return &AuthHandler{svc: svc, limiter: limiter, guard: guard}
}

func (h *AuthHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/auth")
	{
		g.POST("/login", h.limiter.Middleware(), h.login)
		g.POST("/refresh", h.refresh)
		g.POST("/logout", h.logout)
		g.GET("/me", h.guard.Require(auth.ScopeReadBooks), h.me)
	}
}

// gin runs go-playground/validator over these binding tags.
type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	Token string `json:"token"`
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bindError(err))
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, pair)
}

func (h *AuthHandler) refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.WriteError(c, bindError(err))
		return
	}
	pair, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, pair)
}

func (h *AuthHandler) logout(c *gin.Context) {
	var req logoutRequest
	_ = c.ShouldBindJSON(&req)
	if req.Token == "" {
		response.WriteError(c, service.NewInvalidInputError([]service.FieldError{{Field: "token", Message: "must not be empty"}}))
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.Token); err != nil {
		response.WriteError(c, err)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{"message": "token revoked"})
}

// me echoes the identity carried by the caller's access token.
func (h *AuthHandler) me(c *gin.Context) {
	claims, ok := ClaimsFrom(c)
	if !ok {
		response.WriteError(c, auth.ErrMissingToken)
		return
	}
	response.WriteData(c, http.StatusOK, gin.H{
		"username":   claims.Subject,
		"role":       claims.Role,
		"scopes":     claims.Scopes,
		"expires_at": claims.ExpiresAt.UTC(),
	})
}
