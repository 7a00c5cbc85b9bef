package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pressflow/newsroom/internal/config"
	"github.com/pressflow/newsroom/internal/domain/user"
	"github.com/pressflow/newsroom/internal/http/middlewares"
	"github.com/pressflow/newsroom/internal/security"
)

type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role user.Role) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context) ([]user.User, error)
	Update(ctx context.Context, id string, name, email *string, role *user.Role) (user.User, error)
	UpdateRole(ctx context.Context, id string, role user.Role) (user.User, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

type UsersHandler struct {
	store UserStore
}

func NewUsersHandler(store UserStore) *UsersHandler {
	return &UsersHandler{store: store}
}

// CreateUser is the admin path that can pick any of the three roles.
func (h *UsersHandler) CreateUser(ctx *gin.Context) {
	var req user.CreateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Invalid role specified.", nil)
		return
	}

	h.create(ctx, req.Name, req.Email, req.Password, role)
}

func (h *UsersHandler) CreateAdmin(ctx *gin.Context) {
	var req user.CreateAdminRequest

	if !BindJSON(ctx, &req) {
		return
	}

	h.create(ctx, req.Name, req.Email, req.Password, user.RoleAdmin)
}

func (h *UsersHandler) create(ctx *gin.Context, name, email, password string, role user.Role) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	hash, err := security.HashPassword(password)
	if err != nil {
		RespondInternal(ctx, "Could not create user")
		return
	}

	u, err := h.store.Create(cctx, name, email, hash, role)
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_taken", "Email is already in use.")
			return
		}
		RespondInternal(ctx, "Could not create user")
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": u})
}

func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	users, err := h.store.List(cctx)
	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"items": users, "count": len(users)})
}

func (h *UsersHandler) GetUser(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	u, err := h.store.GetByID(cctx, ctx.Param("id"))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not fetch user")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *UsersHandler) UpdateUser(ctx *gin.Context) {
	var req user.UpdateUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	var role *user.Role
	if req.Role != nil {
		r, err := user.ParseRole(*req.Role)
		if err != nil {
			RespondBadRequest(ctx, "Invalid role specified.", nil)
			return
		}
		role = &r
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.Update(cctx, ctx.Param("id"), req.Name, req.Email, role)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update user")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *UsersHandler) DeleteUser(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	err := h.store.Delete(cctx, ctx.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrHasContent):
			RespondConflict(ctx, "user_has_content", "User still owns articles and cannot be deleted.")
		default:
			RespondInternal(ctx, "Could not delete user")
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// UpdateRole validates against the closed role set before touching the
// store.
func (h *UsersHandler) UpdateRole(ctx *gin.Context) {
	var req user.UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		RespondBadRequest(ctx, "Invalid role specified.", nil)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	u, err := h.store.UpdateRole(cctx, ctx.Param("userId"), role)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": u})
}

// UpdateMe is the self-service profile update. A password change requires
// the old password to verify first; role is never touchable here.
func (h *UsersHandler) UpdateMe(ctx *gin.Context) {
	id, ok := middlewares.IdentityFromContext(ctx)
	if !ok {
		RespondUnAuthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	var req user.UpdateSelfRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	// every check runs before any write; a rejected request leaves the
	// account untouched
	var newHash string

	if req.OldPassword != nil && req.NewPassword != nil {
		current, err := h.store.GetByID(cctx, id.UserID)
		if err != nil {
			RespondInternal(ctx, "Could not update profile")
			return
		}

		if err := security.CheckPassword(current.PasswordHash, *req.OldPassword); err != nil {
			RespondBadRequest(ctx, "Old password is incorrect", nil)
			return
		}

		hash, err := security.HashPassword(*req.NewPassword)
		if err != nil {
			RespondInternal(ctx, "Could not update profile")
			return
		}
		newHash = hash
	}

	// the profile update carries the conflict risk (duplicate email), so it
	// goes first; the password only rotates once it has succeeded
	u, err := h.store.Update(cctx, id.UserID, req.Name, req.Email, nil)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User not found")
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		default:
			RespondInternal(ctx, "Could not update profile")
		}
		return
	}

	if newHash != "" {
		if err := h.store.SetPassword(cctx, id.UserID, newHash); err != nil {
			RespondInternal(ctx, "Could not update profile")
			return
		}
	}

	ctx.JSON(http.StatusOK, u)
}
