package domain

import "github.com/juju/errors"

// Messages double as the user-facing error text.
const (
	ErrUnauthorized         = errors.ConstError("Unauthorized")
	ErrInvalidCredentials   = errors.ConstError("Invalid email or password")
	ErrUserNotFound         = errors.ConstError("User not found")
	ErrUserNotDeletable     = errors.ConstError("You are not allowed to delete this user")
	ErrVerificationFailed   = errors.ConstError("Email verification failed")
	ErrServiceNotFound      = errors.ConstError("Service not found")
	ErrAgentServiceNotFound = errors.ConstError("Agent service not found")
	ErrRoleMissing          = errors.ConstError("role not seeded")
)
