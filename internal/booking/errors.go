package booking

import "net/http"

// Error kinds for the confirmation workflow. UserCancelled is the explicit
// cancel on the approval page; ApprovalExpired is the approval window lapsing
// with no decision from the user.
const (
	KindOrderCreationFailed    = "OrderCreationFailed"
	KindCaptureOrPersistFailed = "CaptureOrPersistFailed"
	KindUserCancelled          = "UserCancelled"
	KindApprovalExpired        = "ApprovalExpired"
)

// FlowError is a workflow failure with a public/internal message split so
// handlers never leak provider details to clients.
type FlowError struct {
	Kind          string // one of the Kind* constants above
	StatusCode    int    // HTTP status code
	PublicError   string // Safe to expose to clients
	InternalError string // Detailed error for logs only
	OriginalErr   error  // Underlying error
}

func (e *FlowError) Error() string {
	return e.InternalError
}

func (e *FlowError) Unwrap() error {
	return e.OriginalErr
}

func orderCreationError(internal string, err error) *FlowError {
	return &FlowError{
		Kind:          KindOrderCreationFailed,
		StatusCode:    http.StatusBadGateway,
		PublicError:   "Could not start the payment. Please try again.",
		InternalError: internal,
		OriginalErr:   err,
	}
}

// captureOrPersistError covers the financially ambiguous class: the charge
// may have gone through while the confirmation write did not. Callers must
// record an audit entry before surfacing this.
func captureOrPersistError(internal string, err error) *FlowError {
	return &FlowError{
		Kind:          KindCaptureOrPersistFailed,
		StatusCode:    http.StatusBadGateway,
		PublicError:   "Your payment may have been processed but the booking could not be confirmed. Please contact support.",
		InternalError: internal,
		OriginalErr:   err,
	}
}
