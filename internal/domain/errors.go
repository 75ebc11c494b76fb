package domain

import "errors"

// Failure taxonomy for external collaborators.
// Clients wrap one of these with fmt.Errorf("%w: ...") so callers can branch with errors.Is
// and convert the failure into a fallback value at the adapter boundary.
var (
	// ErrNotConfigured means the collaborator has no URL or credential and was skipped
	ErrNotConfigured = errors.New("collaborator not configured")
	// ErrExternalUnavailable covers transport failures, timeouts and non-2xx responses
	ErrExternalUnavailable = errors.New("external service unavailable")
	// ErrMalformedResponse means the body did not have the expected JSON shape
	ErrMalformedResponse = errors.New("malformed external response")
)

// IsExternalFailure reports whether err belongs to the external failure taxonomy.
// Malformed responses are treated the same as an unavailable service.
func IsExternalFailure(err error) bool {
	return errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, ErrExternalUnavailable) ||
		errors.Is(err, ErrMalformedResponse)
}
