// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import "errors"

var (
	// ErrUserNotFound is returned when no (active) user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrUsernameExists and ErrEmailExists are returned by registration when
	// the unique username or email is already taken.
	ErrUsernameExists = errors.New("username already exists")
	ErrEmailExists    = errors.New("email already registered")
	// ErrTokenNotRedeemable is returned when a verification token was
	// already used or has been superseded by a newer one.
	ErrTokenNotRedeemable = errors.New("verification token not redeemable")

	ErrCategoryNotFound = errors.New("category not found")
	ErrResourceNotFound = errors.New("resource not found")
	ErrRequestNotFound  = errors.New("request not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrEventNotFound    = errors.New("event not found")
)

// ErrForbidden is returned when the caller attempts an operation
// on a record they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrInvalidTransition is returned when a status change is not allowed from
// the record's current status, such as accepting an already declined
// request.  Handlers should translate this into an HTTP 409 response.
var ErrInvalidTransition = errors.New("invalid status transition")
