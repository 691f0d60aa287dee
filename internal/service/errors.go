package service

import "errors"

// Error taxonomy for the scheduling core. Handlers translate these into HTTP
// statuses (404, 409, 400, 503); everything else is a plain internal error.
var (
	ErrNotFound           = errors.New("item not found")
	ErrConflict           = errors.New("operation not permitted from current status")
	ErrValidation         = errors.New("invalid request")
	ErrRegistrationFailed = errors.New("trigger registration unavailable")
)
