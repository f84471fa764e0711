// Package errors is the single error package used across htsmatch.
//
// It re-exports github.com/cockroachdb/errors so every error created in the
// code base carries a stack trace and can carry user-facing hints:
//
//	if err := store.Upsert(ctx, rec); err != nil {
//	    return errors.Wrapf(err, "failed to persist product %d", rec.ProductID)
//	}
//
//	return errors.WithHint(errors.Mark(err, errors.ErrConfig), "set HTSMATCH_ANTHROPIC_API_KEY")
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Creation and wrapping
var (
	New           = crdb.New
	Newf          = crdb.Newf
	Wrap          = crdb.Wrap
	Wrapf         = crdb.Wrapf
	WithStack     = crdb.WithStack
	WithMessage   = crdb.WithMessage
	WithMessagef  = crdb.WithMessagef
	Mark          = crdb.Mark
	CombineErrors = crdb.CombineErrors
)

// Hints and details shown to the operator
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Sentinel errors. Match with errors.Is; wrap or Mark to add context.
var (
	// ErrNotFound indicates the requested row or remote resource does not exist.
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input at a package boundary.
	ErrInvalidRequest = New("invalid request")

	// ErrConfig marks configuration problems. These halt the program before any work starts.
	ErrConfig = New("configuration error")

	// ErrNotConfirmed is returned by operations that write to a storefront without explicit confirmation.
	ErrNotConfirmed = New("operation not confirmed")

	// ErrUnavailable indicates a remote service answered with an error status or not at all.
	ErrUnavailable = New("service unavailable")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConfig reports whether err is or wraps ErrConfig.
func IsConfig(err error) bool {
	return err != nil && Is(err, ErrConfig)
}

// NewNotFoundError creates a not-found error with a formatted message.
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewConfigError creates a configuration error with a formatted message.
func NewConfigError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrConfig)
}
