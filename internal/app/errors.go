package app

import "errors"

var (
	// ErrValidation covers malformed or missing request fields.
	ErrValidation = errors.New("invalid request")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with existing state,
	// such as registering an email that already has an account.
	ErrConflict = errors.New("conflict")

	// ErrAccessDenied is returned when the caller lacks the entitlement or
	// role an operation requires.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidCredentials is the single message for any login failure so
	// responses do not enable account enumeration.
	ErrInvalidCredentials = errors.New("Incorrect email address or password")

	// ErrDuplicateTransaction is returned when a gateway notification
	// replays a transaction that was already recorded.
	ErrDuplicateTransaction = errors.New("transaction already processed")

	// ErrUpstream wraps payment-gateway failures. Handlers surface a generic
	// message; the cause is only logged.
	ErrUpstream = errors.New("payment gateway unavailable")

	// ErrSamePassword is returned when a password reset supplies the
	// password already in use.
	ErrSamePassword = errors.New("new password must differ from the current password")
)
