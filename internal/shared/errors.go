package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate indicates a uniqueness conflict (handle, email, name).
	ErrDuplicate = errors.New("duplicate entry")
	// ErrInvalidCredentials indicates login failure. The same value is
	// returned for an unknown handle and a wrong password so callers
	// cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPermissionDenied indicates an authenticated but unauthorized caller.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps internal errors to a message that can be shown to
// end users without leaking persistence details.
func UserSafeMessage(err error) string {
	switch {
	case errors.Is(err, ErrDuplicate):
		return "That name is already taken"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid handle or password"
	case errors.Is(err, ErrPermissionDenied):
		return "You do not have permission to do that"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	default:
		return "Something went wrong, please try again"
	}
}
