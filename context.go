package rbackit

import (
	"context"
)

// Context keys for rbackit values.
type contextKey string

const (
	contextKeySubject contextKey = "rbackit:subject"
	contextKeyChecker contextKey = "rbackit:checker"
)

// WithSubject adds a Subject to the context.
func WithSubject(ctx context.Context, subject Subject) context.Context {
	return context.WithValue(ctx, contextKeySubject, subject)
}

// GetSubject retrieves the Subject from context.
// Returns nil if not set.
func GetSubject(ctx context.Context) Subject {
	if v := ctx.Value(contextKeySubject); v != nil {
		if s, ok := v.(Subject); ok {
			return s
		}
	}
	return nil
}

// MustGetSubject retrieves the Subject from context.
// Panics if not set.
func MustGetSubject(ctx context.Context) Subject {
	s := GetSubject(ctx)
	if s == nil {
		panic("rbackit: subject not in context")
	}
	return s
}

// WithChecker adds a Checker to the context.
func WithChecker(ctx context.Context, checker *Checker) context.Context {
	return context.WithValue(ctx, contextKeyChecker, checker)
}

// GetChecker retrieves the Checker from context.
// Falls back to a Checker built from the context Subject, or nil if neither is set.
func GetChecker(ctx context.Context) *Checker {
	if v := ctx.Value(contextKeyChecker); v != nil {
		if c, ok := v.(*Checker); ok {
			return c
		}
	}
	if s := GetSubject(ctx); s != nil {
		return NewChecker(s.ID(), s.RoleSet())
	}
	return nil
}

// FromContext retrieves the Checker from context.
// Alias for GetChecker for convenience.
func FromContext(ctx context.Context) *Checker {
	return GetChecker(ctx)
}

// RequirePermission checks the named permission against the Checker in context.
// Returns ErrInvalidSubject if the context carries neither a Checker nor a Subject.
func RequirePermission(ctx context.Context, permission string) error {
	c := GetChecker(ctx)
	if c == nil {
		return NewError(ErrInvalidSubject, "no subject in context").WithPermission(permission)
	}
	return c.Require(permission)
}
