package handler

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/maxviazov/library-service/internal/auth"
	"github.com/maxviazov/library-service/internal/service"
	"github.com/maxviazov/library-service/pkg/response"
)

const claimsKey = "auth.claims"

// RequestLogger writes one access line per request.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	l := logger.With().Str("module", "handler").Str("component", "http").Logger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		if status >= http.StatusInternalServerError {
			ev = l.Error()
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ev.Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("route", route).
			Str("query", c.Request.URL.RawQuery).
			Int("status", status).
			Str("client_ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("request served")
	}
}

// AuthGuard turns bearer tokens into claims and enforces scopes.
type AuthGuard struct {
	svc *auth.Service
}

func NewAuthGuard(svc *auth.Service) *AuthGuard { return &AuthGuard{svc: svc} }

// Require rejects requests without a valid access token carrying scope (401 / 403).
func (g *AuthGuard) Require(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := g.svc.Authenticate(c.Request.Context(), bearerToken(c.GetHeader("Authorization")), scope)
		if err != nil {
			response.WriteError(c, err)
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by AuthGuard.Require.
func ClaimsFrom(c *gin.Context) (auth.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := v.(auth.Claims)
	return claims, ok
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
	clients map[string]*client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute sustained requests per IP with the given burst.
func NewIPRateLimiter(perMinute float64, burst int) *IPRateLimiter {
	return &IPRateLimiter{
		limit:   rate.Limit(perMinute / 60),
		burst:   burst,
		idleTTL: 10 * time.Minute,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Allow reports whether ip may proceed now. Idle buckets are swept on the way.
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.idleTTL {
			delete(l.clients, k)
		}
	}
	cl, ok := l.clients[ip]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "60")
			response.WriteError(c, response.ErrRateLimited)
			return
		}
		c.Next()
	}
}

// bufferedWriter holds the body back so a hash of it can become the ETag.
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int)              { w.status = code }
func (w *bufferedWriter) WriteHeaderNow()                   {}
func (w *bufferedWriter) Write(b []byte) (int, error)       { return w.buf.Write(b) }
func (w *bufferedWriter) WriteString(s string) (int, error) { return w.buf.WriteString(s) }
func (w *bufferedWriter) Status() int                       { return w.status }
func (w *bufferedWriter) Size() int                         { return w.buf.Len() }
func (w *bufferedWriter) Written() bool                     { return w.buf.Len() > 0 }

// ETagCache tags successful GET responses with a SHA-1 ETag and Cache-Control,
// answering 304 with no body when If-None-Match already holds that tag.
func ETagCache(maxAge int) gin.HandlerFunc {
	return func(c *gin.Context) {
		orig := c.Writer
		bw := &bufferedWriter{ResponseWriter: orig, status: http.StatusOK}
		c.Writer = bw
		c.Next()
		c.Writer = orig

		if bw.status == http.StatusOK {
			sum := sha1.Sum(bw.buf.Bytes())
			etag := `"` + hex.EncodeToString(sum[:]) + `"`
			orig.Header().Set("ETag", etag)
			orig.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
			if etagMatches(c.GetHeader("If-None-Match"), etag) {
				orig.Header().Del("Content-Type")
				orig.WriteHeader(http.StatusNotModified)
				orig.WriteHeaderNow()
				return
			}
		}
		orig.WriteHeader(bw.status)
		orig.WriteHeaderNow()
		if bw.buf.Len() > 0 {
			_, _ = orig.Write(bw.buf.Bytes())
		}
	}
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// bindError turns gin binding failures into field errors: validator tags,
// mistyped JSON fields and unreadable bodies.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &verrs):
		fes := make([]service.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fes = append(fes, service.FieldError{Field: strings.ToLower(fe.Field()), Message: "failed on " + fe.Tag()})
		}
		return service.NewInvalidInputError(fes)
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return service.NewInvalidInputError([]service.FieldError{{Field: field, Message: "must be " + typeErr.Type.String()}})
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return service.NewInvalidInputError([]service.FieldError{{Field: "body", Message: "must be a JSON object"}})
	default:
		return service.ErrInvalidInput
	}
}
