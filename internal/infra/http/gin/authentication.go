package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"hlopg/internal/app/services/auth"
	domainauth "hlopg/internal/domain/auth"
	domainuser "hlopg/internal/domain/user"
)

const (
	principalKey = "hlopg.principal"
	bearerScheme = "bearer"
)

// principal is the signed-in caller resolved from a bearer token.
type principal struct {
	User  *domainuser.User
	Token string
}

func (p principal) ID() string            { return string(p.User.ID) }
func (p principal) Role() domainuser.Role { return p.User.Role }

type AuthMiddleware struct {
	Service *auth.Service
	Logger  *slog.Logger
}

// Handle resolves the bearer token into a principal. Anonymous and unknown tokens pass
// through; the route decides whether it needs a caller.
func (m AuthMiddleware) Handle(c *gin.Context) {
	defer c.Next()
	if m.Service == nil {
		return
	}
	token, ok := bearerToken(c.Request)
	if !ok {
		return
	}
	resolved, err := m.Service.ResolveToken(c.Request.Context(), token)
	switch {
	case err == nil:
		c.Set(principalKey, principal{User: resolved.User, Token: token})
	case !errors.Is(err, domainauth.ErrSessionNotFound) && m.Logger != nil:
		m.Logger.Warn("session lookup failed", "error", err)
	}
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, _ := c.Get(principalKey)
	p, ok := val.(principal)
	return p, ok
}

// requireRole answers 401 for anonymous callers and 403 for the wrong role.
// An empty role admits any signed-in user.
func requireRole(c *gin.Context, role domainuser.Role) (principal, bool) {
	p, ok := currentPrincipal(c)
	switch {
	case !ok:
		c.JSON(http.StatusUnauthorized, errorBody(c, "auth required"))
	case role != "" && !p.User.HasRole(role):
		c.JSON(http.StatusForbidden, errorBody(c, "insufficient permissions"))
	default:
		return p, true
	}
	return principal{}, false
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Limiter is satisfied by security.KeyLimiter.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit answers 429 once a client IP spends its budget.
func RateLimit(l Limiter) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody(c, "too many requests"))
			return
		}
		c.Next()
	}
}
