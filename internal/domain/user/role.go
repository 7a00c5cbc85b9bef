package user

import "errors"

// Role is a closed three-value set. Anything else is rejected at every
// boundary: registration, admin creation, role update, authorization.
type Role string

const (
	RoleReader Role = "reader"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var ErrInvalidRole = errors.New("invalid role")

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleReader, RoleEditor, RoleAdmin:
		return Role(s), nil
	}
	return "", ErrInvalidRole
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}
