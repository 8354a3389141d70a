package enums

import (
	"fmt"
	"strings"
)

// UserRole is carried in access tokens and request context.
type UserRole string

const (
	UserRoleUser  UserRole = "user"
	UserRoleAdmin UserRole = "admin"
)

func (r UserRole) IsValid() bool {
	return r == UserRoleUser || r == UserRoleAdmin
}

// ParseUserRole converts raw input (case-insensitive) into UserRole.
func ParseUserRole(value string) (UserRole, error) {
	role := UserRole(strings.ToLower(strings.TrimSpace(value)))
	if role.IsValid() {
		return role, nil
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
