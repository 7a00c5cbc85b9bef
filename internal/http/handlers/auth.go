package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressflow/newsroom/internal/auth"
	"github.com/pressflow/newsroom/internal/config"
	"github.com/pressflow/newsroom/internal/domain/user"
	"github.com/pressflow/newsroom/internal/http/middlewares"
	"github.com/pressflow/newsroom/internal/security"
)

type UserReader interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

type UserWriter interface {
	Create(ctx context.Context, name, email, passwordHash string, role user.Role) (user.User, error)
}

type AuthHandler struct {
	users    UserReader
	writer   UserWriter
	sessions *auth.Manager
	cfg      config.Config
}

func NewAuthHandler(users UserReader, writer UserWriter, sessions *auth.Manager, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		users:    users,
		writer:   writer,
		sessions: sessions,
		cfg:      cfg,
	}
}

// Register creates a reader account and starts a session right away.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		RespondInternal(ctx, "Could not create account")
		return
	}

	u, err := h.writer.Create(cctx, req.Name, req.Email, hash, user.RoleReader)

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}

		RespondInternal(ctx, "Could not create account")
		return
	}

	if !h.startSession(ctx, u) {
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	found, err := h.users.GetByEmail(cctx, req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
			return
		}
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := security.CheckPassword(found.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials", "Email or password is incorrect.")
		return
	}

	if !h.startSession(ctx, found) {
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": found})
}

// Logout only clears the cookie. The token itself stays valid until its
// natural expiry since sessions are stateless and nothing server-side can
// revoke them.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(h.cfg.CookieName, "", -1, "/", "", h.cfg.CookieSecure, true)
	ctx.JSON(http.StatusOK, gin.H{"status": "success"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.users.GetByID(cctx, id.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

// startSession issues the token and sets the HTTP-only cookie. Cookie
// max-age and token TTL are deliberately separate knobs.
func (h *AuthHandler) startSession(ctx *gin.Context, u user.User) bool {
	token, err := h.sessions.Issue(u.ID, u.Role)

	if err != nil {
		RespondInternal(ctx, "Could not create session")
		return false
	}

	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(h.cfg.CookieName, token, int(h.cfg.CookieMaxAge.Seconds()), "/", "", h.cfg.CookieSecure, true)

	return true
}
