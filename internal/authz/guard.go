// Package authz holds the authorization decisions, separate from transport
// so they can be tested without spinning up a router.
package authz

import (
	"errors"

	"github.com/pressflow/newsroom/internal/domain/user"
)

type Identity struct {
	UserID string
	Role   user.Role
}

var ErrForbidden = errors.New("access denied")

// RequireAdmin allows admins only.
func RequireAdmin(id Identity) error {
	if id.Role != user.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireEditor allows editors and admins. Readers have no elevated
// capability.
func RequireEditor(id Identity) error {
	if id.Role != user.RoleEditor && id.Role != user.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

// RequireAuthor is the ownership rule for article deletion: author only.
// There is deliberately no admin override; an admin who did not write the
// article is denied.
func RequireAuthor(authorID string, id Identity) error {
	if authorID == "" || authorID != id.UserID {
		return ErrForbidden
	}
	return nil
}
