package csrf

import (
	"errors"
	"net/http"
)

// KindBadToken is the machine-readable kind of a verification failure.
const KindBadToken = "EBADCSRFTOKEN"

// Error is the failure reported to the ErrorHandler. Message is safe to show
// to clients; Err carries the internal cause and is never written out by the
// default handler.
type Error struct {
	Err     error
	Kind    string
	Message string
	Status  int
}

// ErrBadToken is returned for every token that fails verification, whatever
// the reason, so the response cannot be used as a decryption oracle.
var ErrBadToken = &Error{
	Status:  http.StatusForbidden,
	Kind:    KindBadToken,
	Message: "CSRF Token Mismatch",
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status to respond with.
func (e *Error) StatusCode() int {
	return e.Status
}

func internalError(err error) *Error {
	return &Error{
		Err:     err,
		Kind:    "EINTERNAL",
		Message: http.StatusText(http.StatusInternalServerError),
		Status:  http.StatusInternalServerError,
	}
}

// IsBadToken reports whether err is a token verification failure.
func IsBadToken(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindBadToken
}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler responds with the error's status and plain-text message.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var e *Error
	if errors.As(err, &e) {
		http.Error(w, e.Message, e.Status)
		return
	}
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
