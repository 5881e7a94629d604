package model

import (
	"fmt"
	"time"
)

// User represents a portal member who can request, hold, and manage equipment.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles, lowest to highest. Moderators and above are staff and may decide
// requests; superusers administer the portal but may not request equipment
// for themselves.
const (
	RoleUser      = "user"
	RoleModerator = "moderator"
	RoleAdmin     = "admin"
	RoleSuperuser = "superuser"
)

var roleLevels = map[string]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
	RoleSuperuser: 4,
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	_, ok := roleLevels[role]
	return ok
}

// RoleAtLeast checks if role meets or exceeds the minimum required role.
// Unknown roles fail closed.
func RoleAtLeast(role, minimum string) bool {
	r, ok := roleLevels[role]
	if !ok {
		return false
	}
	m, ok := roleLevels[minimum]
	if !ok {
		return false
	}
	return r >= m
}

// ValidatePassword checks minimal password requirements.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
