package session

import errs "github.com/jrsteele09/crec-session/internal/errors"

// Error kinds surfaced by the session core. Match them with errors.Is.
var (
	ErrInvalidCredentials = errs.ErrInvalidCredentials
	ErrAuthExpired        = errs.ErrAuthExpired
	ErrNetwork            = errs.ErrNetwork
	ErrTimeout            = errs.ErrTimeout
	ErrCorruptState       = errs.ErrCorruptState
	ErrStorageUnavailable = errs.ErrStorageUnavailable
	ErrRefreshUnsupported = errs.ErrRefreshUnsupported
)
