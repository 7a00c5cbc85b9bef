package user

import (
	"errors"
	"time"
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

var (
	ErrNotFound   = errors.New("user not found")
	ErrEmailTaken = errors.New("email already in use")
	// returned by self-update when the supplied old password does not verify
	ErrBadOldPassword = errors.New("old password is incorrect")
	// deleting a user who still authors articles is refused
	ErrHasContent = errors.New("user still owns content")
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Admin-only creation path; role must be one of the closed set.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role" binding:"required,oneof=reader editor admin"`
}

type CreateAdminRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=80"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type UpdateUserRequest struct {
	Name  *string `json:"name" binding:"omitempty,min=2,max=80"`
	Email *string `json:"email" binding:"omitempty,email"`
	Role  *string `json:"role" binding:"omitempty,oneof=reader editor admin"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// Self-service profile update. Password only changes when both old and new
// are supplied and the old one verifies against the stored hash.
type UpdateSelfRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=80"`
	Email       *string `json:"email" binding:"omitempty,email"`
	OldPassword *string `json:"oldPassword" binding:"omitempty"`
	NewPassword *string `json:"newPassword" binding:"omitempty,min=8"`
}
