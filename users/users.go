package users

import (
	"slices"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the back-office role of an administrative user
type RoleType string

const (
	RoleAdmin  RoleType = "admin"  // Full back-office access
	RoleEditor RoleType = "editor" // Content and course catalog editing
	RoleViewer RoleType = "viewer" // Read-only back-office access
)

// Permission strings checked before exposing an administrative action.
const (
	PermCoursesRead       = "courses:read"
	PermCoursesWrite      = "courses:write"
	PermEnrollmentsReview = "enrollments:review"
	PermDonationsRead     = "donations:read"
	PermContentEdit       = "content:edit"
	PermFabLabManage      = "fablab:manage"
	PermUsersManage       = "users:manage"
)

var rolePermissions = map[RoleType][]string{
	RoleAdmin: {
		PermCoursesRead, PermCoursesWrite, PermEnrollmentsReview, PermDonationsRead,
		PermContentEdit, PermFabLabManage, PermUsersManage,
	},
	RoleEditor: {PermCoursesRead, PermCoursesWrite, PermContentEdit},
	RoleViewer: {PermCoursesRead, PermDonationsRead},
}

// PermissionsForRole returns a copy of the default permission set of role.
func PermissionsForRole(role RoleType) []string {
	return slices.Clone(rolePermissions[role])
}

// User is the administrative user profile. It is what the admin session
// persists under the "user" key, so PasswordHash never serializes.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName,omitempty"`
	Role         RoleType  `json:"role"`
	Permissions  []string  `json:"permissions,omitempty"`
	PasswordHash string    `json:"-"`
	Blocked      bool      `json:"-"`
	LastLogin    time.Time `json:"lastLogin,omitempty"`
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func (u *User) PrincipalID() string {
	return u.ID
}

// HasPermission reports whether permission is in the user's permission set.
func (u *User) HasPermission(permission string) bool {
	if u == nil {
		return false
	}
	return slices.Contains(u.Permissions, permission)
}

// IsAdmin returns true for the full back-office role
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Public returns a copy safe to hand out of a repo: no password hash.
func (u *User) Public() *User {
	c := *u
	c.PasswordHash = ""
	c.Permissions = slices.Clone(u.Permissions)
	return &c
}
