package cancellation

import "errors"

// Failure kinds. Every error returned by Service is an *Error whose Kind is one of these.
var (
	ErrNotFound               = errors.New("not found")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidState           = errors.New("invalid state")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrSettlementCommitFailed = errors.New("settlement commit failed")
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Kind    error
	Status  int
	Code    string
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Retryable reports whether the caller may retry the same request. Nothing was applied.
func (e *Error) Retryable() bool {
	return errors.Is(e.Kind, ErrConcurrentModification) || errors.Is(e.Kind, ErrSettlementCommitFailed)
}

func errTripNotFound(err error) *Error {
	return &Error{Kind: ErrNotFound, Status: 404, Code: "TRIP_NOT_FOUND", Message: "trip not found", Err: err}
}

func errAccountNotFound(err error) *Error {
	return &Error{Kind: ErrNotFound, Status: 404, Code: "ACCOUNT_NOT_FOUND", Message: "credit account not found", Err: err}
}

func errNotDriver() *Error {
	return &Error{Kind: ErrUnauthorized, Status: 403, Code: "NOT_TRIP_DRIVER", Message: "only the trip's driver can cancel it"}
}

func errNotPassenger(err error) *Error {
	return &Error{Kind: ErrUnauthorized, Status: 403, Code: "NOT_TRIP_PASSENGER", Message: "requester is not booked on this trip", Err: err}
}

func errTripNotActive(status string, err error) *Error {
	return &Error{Kind: ErrInvalidState, Status: 409, Code: "TRIP_NOT_ACTIVE", Message: "trip is " + status, Err: err}
}

func errContention(err error) *Error {
	return &Error{Kind: ErrConcurrentModification, Status: 503, Code: "CONCURRENT_MODIFICATION", Message: "trip is being modified, try again", Err: err}
}

func errCommitFailed(err error) *Error {
	return &Error{Kind: ErrSettlementCommitFailed, Status: 503, Code: "SETTLEMENT_FAILED", Message: "cancellation could not be completed, try again", Err: err}
}
