package auth

import "taskboard/internal/domain"

// Identity is the caller resolved from a verified token. It is attached
// to the request context once and passed explicitly from there on.
type Identity struct {
	UserID string
	Role   domain.Role
}

// IsAdmin reports whether the identity carries the administrator role.
func (i Identity) IsAdmin() bool {
	return i.Role == domain.RoleAdmin
}
