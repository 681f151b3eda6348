// Package authorization enforces fine-grained capability checks. The
// role and permission store stays the source of truth; this package
// keeps a casbin mirror of it for fast enforcement and resyncs whenever
// the store changes.
package authorization

import (
	"context"
	"errors"
)

type Service interface {
	// Authorize checks that the account may exercise the named
	// permission. Admin accounts pass every check.
	Authorize(ctx context.Context, accountID string, permission string) error

	// Resync rebuilds the casbin mirror from the store.
	Resync(ctx context.Context) error
}

var (
	ErrInvalidActor      = errors.New("invalid_actor")
	ErrInvalidPermission = errors.New("invalid_permission")
	ErrForbidden         = errors.New("forbidden")
)
