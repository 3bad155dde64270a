package users_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/crec-session/users"
	"github.com/stretchr/testify/require"
)

func TestUser_HasPermission(t *testing.T) {
	admin := &users.User{Role: users.RoleAdmin, Permissions: users.PermissionsForRole(users.RoleAdmin)}
	editor := &users.User{Role: users.RoleEditor, Permissions: users.PermissionsForRole(users.RoleEditor)}

	require.True(t, admin.HasPermission(users.PermUsersManage))
	require.True(t, editor.HasPermission(users.PermContentEdit))
	require.False(t, editor.HasPermission(users.PermDonationsRead))

	var nilUser *users.User
	require.False(t, nilUser.HasPermission(users.PermCoursesRead))
}

func TestUser_PasswordHashNeverSerialized(t *testing.T) {
	hash, err := users.HashPassword("admin123")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("admin123", hash))
	require.False(t, users.CheckPasswordHash("wrong", hash))

	data, err := json.Marshal(&users.User{ID: "u1", Email: "admin@crec.edu", PasswordHash: hash})
	require.NoError(t, err)
	require.NotContains(t, string(data), hash)
}

func TestPermissionsForRole_ReturnsCopy(t *testing.T) {
	perms := users.PermissionsForRole(users.RoleViewer)
	perms[0] = "tampered"
	require.NotContains(t, users.PermissionsForRole(users.RoleViewer), "tampered")
}
