package rbackit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePermission(t *testing.T) {
	tests := []struct {
		name    string
		perm    *Permission
		wantErr error
		message string
	}{
		{"valid", NewPermission("read", ""), nil, ""},
		{"max length", NewPermission(strings.Repeat("a", MaxNameLength), ""), nil, ""},
		{"empty", NewPermission("", ""), ErrInvalidPermission, "Name is required"},
		{"too long", NewPermission(strings.Repeat("a", MaxNameLength+1), ""), ErrInvalidPermission, "Name must be at most 32 characters"},
		{"nil", nil, ErrValidation, "nil permission"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePermission(tt.perm)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidateRole(t *testing.T) {
	assert.NoError(t, ValidateRole(&Role{Name: "editor"}))
	assert.ErrorIs(t, ValidateRole(nil), ErrValidation)

	err := ValidateRole(&Role{Name: strings.Repeat("r", 40)})
	require.True(t, IsInvalidRole(err))
	var rbacErr *Error
	require.ErrorAs(t, err, &rbacErr)
	assert.Equal(t, strings.Repeat("r", 40), rbacErr.Role)
}

func TestPermissionNames(t *testing.T) {
	perms := []*Permission{{Name: "write"}, {Name: "delete"}, {Name: "read"}}
	assert.Equal(t, []string{"delete", "read", "write"}, PermissionNames(perms))
	assert.Empty(t, PermissionNames(nil))
}
