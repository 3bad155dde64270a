package auth

import "errors"

// Reasons a credential is refused. Each is reported wrapped around
// ErrInvalidCredentials so callers only need to match that.
var (
	UserNotFoundErr           = errors.New("user not found")
	UserBlockedErr            = errors.New("user blocked")
	UserPasswordsDontMatchErr = errors.New("user passwords not matched")
	UnknownAccessKeyErr       = errors.New("unknown access key")
	SubjectMismatchErr        = errors.New("token subject is not a known user or member")
)
