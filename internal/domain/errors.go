package domain

import "errors"

// ProtocolError signals a violation of the session protocol. The connection
// is closed without a response.
type ProtocolError struct {
	Op  string // Operation that detected the violation (e.g. "dispatch", "logon")
	Err error  // Underlying error
}

func (e *ProtocolError) Error() string {
	return "protocol violation [" + e.Op + "]: " + e.Err.Error()
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError wraps err as a session protocol violation.
func NewProtocolError(op string, err error) *ProtocolError {
	return &ProtocolError{Op: op, Err: err}
}

// IsProtocolViolation checks whether err requires closing the connection
// without a response.
func IsProtocolViolation(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}

var (
	// ErrMalformedMessage is returned when a wire message cannot be decoded.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrNotAuthenticated is returned for trading messages before logon.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrBadCredentials is returned when a credential match fails.
	ErrBadCredentials = errors.New("bad credentials")

	// ErrDuplicateUsername is returned when signup reuses a username.
	ErrDuplicateUsername = errors.New("username already taken")

	// ErrUnknownSymbol is returned when an order references an unlisted symbol.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInvalidOrder is returned when order fields fail validation.
	ErrInvalidOrder = errors.New("invalid order")
)

// IsRejectable reports whether err is a business error whose text may be
// echoed to the client in a reject message. Anything else is masked.
func IsRejectable(err error) bool {
	return errors.Is(err, ErrInvalidOrder) ||
		errors.Is(err, ErrUnknownSymbol) ||
		errors.Is(err, ErrDuplicateUsername) ||
		errors.Is(err, ErrMalformedMessage)
}
