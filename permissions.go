package rbackit

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

// MaxNameLength is the longest permission or role name the schema stores.
const MaxNameLength = 32

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidatePermission checks a permission before it is written.
func ValidatePermission(p *Permission) error {
	if p == nil {
		return NewError(ErrValidation, "nil permission")
	}
	if err := validate.Struct(p); err != nil {
		return NewError(ErrInvalidPermission, describeValidation(err)).WithPermission(p.Name)
	}
	return nil
}

// ValidateRole checks a role before it is written.
func ValidateRole(r *Role) error {
	if r == nil {
		return NewError(ErrValidation, "nil role")
	}
	if err := validate.Struct(r); err != nil {
		return NewError(ErrInvalidRole, describeValidation(err)).WithRole(r.Name)
	}
	return nil
}

func describeValidation(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
	}
}

// PermissionNames returns the sorted names of the given permissions.
func PermissionNames(perms []*Permission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// permissionIndex maps permission IDs to permissions.
func permissionIndex(perms []*Permission) map[int64]*Permission {
	idx := make(map[int64]*Permission, len(perms))
	for _, p := range perms {
		idx[p.ID] = p
	}
	return idx
}
