package domain

import (
	"errors"
	"fmt"
)

// LocationErrorKind classifies a failed location acquisition.
type LocationErrorKind string

const (
	LocationPermissionDenied LocationErrorKind = "permission_denied"
	LocationUnavailable      LocationErrorKind = "unavailable"
	LocationTimeout          LocationErrorKind = "timeout"
	LocationUnsupported      LocationErrorKind = "unsupported"
)

// LocationError is a typed acquisition failure. It is recovered locally and
// surfaced as display state, never thrown past the session.
type LocationError struct {
	Kind LocationErrorKind
}

func (e *LocationError) Error() string {
	switch e.Kind {
	case LocationPermissionDenied:
		return "location permission denied"
	case LocationUnavailable:
		return "location information unavailable"
	case LocationTimeout:
		return "location request timed out"
	case LocationUnsupported:
		return "location is not supported in this environment"
	}
	return "unable to retrieve location"
}

// AsLocationError unwraps err into a *LocationError if it is one.
func AsLocationError(err error) (*LocationError, bool) {
	var le *LocationError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// UpstreamError is a non-success response from the occupancy service.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream error: status %d", e.Status)
}

// Gate and input failures. All are rejected locally, before any network call.
var (
	// ErrInvalidInput rejects a schedule submission with an empty time.
	ErrInvalidInput = errors.New("departure time is required")

	// ErrLocationRequired rejects a leaving-soon action without a resolved
	// coordinate.
	ErrLocationRequired = errors.New("location is required")

	// ErrOutOfRange rejects a leaving-soon action outside the lot geofence,
	// on lots that enforce it.
	ErrOutOfRange = errors.New("outside the parking lot range")

	// ErrAlreadyActed rejects a second leaving-soon action for the session.
	ErrAlreadyActed = errors.New("leaving soon already reported")

	// ErrSessionClosed rejects any command after session teardown.
	ErrSessionClosed = errors.New("session is closed")
)
