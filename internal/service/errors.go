// Package service implements the placement portal's workflows on top of
// the repository layer: identity and credentials, the job catalog, the
// application workflow, dashboards and settings.  Handlers translate the
// sentinel errors below into HTTP responses.
package service

import (
	"errors"
	"fmt"
)

var (
	ErrValidation                 = errors.New("validation failed")
	ErrDuplicateEmail             = errors.New("email already registered")
	ErrDuplicateApplication       = errors.New("you have already applied to this job")
	ErrNotFound                   = errors.New("not found")
	ErrNotAuthorized              = errors.New("not authorized")
	ErrInvalidCredentials         = errors.New("invalid email, password or role")
	ErrInvalidAdminKey            = errors.New("invalid admin key")
	ErrInvalidOrExpiredToken      = errors.New("reset link is invalid or has expired")
	ErrEmailNotFound              = errors.New("no account found with that email")
	ErrIncorrectCurrentCredential = errors.New("current password is incorrect")
	ErrJobUnavailable             = errors.New("this job is not accepting applications")
	ErrDeadlinePassed             = errors.New("the application deadline has passed")
	ErrResumeRequired             = errors.New("upload a resume before applying")
	ErrInvalidTransition          = errors.New("status change not allowed")
	ErrAccountInactive            = errors.New("account is deactivated")
	ErrExternalService            = errors.New("external service unavailable")
)

// invalid wraps ErrValidation with a user-facing message.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
