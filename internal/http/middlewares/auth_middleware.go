package middlewares

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressflow/newsroom/internal/auth"
	"github.com/pressflow/newsroom/internal/authz"
	"github.com/pressflow/newsroom/internal/config"
	"github.com/pressflow/newsroom/internal/domain/user"
)

// Small interfaces so tests can fake them easily.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	sessions   TokenVerifier
	users      UserGetter
	cookieName string
}

func NewAuthMiddleware(sessions TokenVerifier, users UserGetter, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, users: users, cookieName: cookieName}
}

// Authenticate reads the session cookie, verifies the token and then loads
// the user record behind it: a token for a deleted account is as invalid as
// a forged one.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(m.cookieName)
		if err != nil || raw == "" {
			abortUnauthorized(c, "missing_credentials", "Missing session token")
			return
		}

		claims, err := m.sessions.Verify(raw)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				abortUnauthorized(c, "expired_token", "Session has expired")
				return
			}
			abortUnauthorized(c, "invalid_token", "Invalid session token")
			return
		}

		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		u, err := m.users.GetByID(cctx, claims.UserID)
		if err != nil {
			// account deleted or store failure, either way no identity
			abortUnauthorized(c, "invalid_token", "Invalid session token")
			return
		}

		// role comes from the store, not the token, so role changes apply
		// to existing sessions immediately
		SetIdentity(c, u.ID, u.Email, u.Role)

		c.Next()
	}
}

// SetIdentity stashes the authenticated identity on the request context.
func SetIdentity(c *gin.Context, userID, email string, role user.Role) {
	c.Set(ctxUserIDKey, userID)
	c.Set(ctxEmailKey, email)
	c.Set(ctxRoleKey, string(role))
}

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// Helpers so handlers don't need to know the magic keys.

func IdentityFromContext(c *gin.Context) (authz.Identity, bool) {
	v, ok := c.Get(ctxUserIDKey)
	if !ok {
		return authz.Identity{}, false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return authz.Identity{}, false
	}

	roleVal, _ := c.Get(ctxRoleKey)
	role, _ := roleVal.(string)

	return authz.Identity{UserID: id, Role: user.Role(role)}, true
}

func EmailFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxEmailKey)
	if !ok {
		return "", false
	}
	email, ok := v.(string)
	return email, ok
}
