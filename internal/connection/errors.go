package connection

import (
	"errors"
	"fmt"
	"net/http"
	"net/textproto"
)

var (
	// ErrNotFound indicates the remote resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupported indicates the protocol has no way to perform the operation.
	ErrUnsupported = errors.New("operation not supported by protocol")

	// ErrNotConnected is returned when Connect has not been called.
	ErrNotConnected = errors.New("not connected")
)

// RequestError is a failed request against the remote service.
type RequestError struct {
	// Op is the failed action, e.g. "list files".
	Op string

	// StatusCode is the HTTP status, or the FTP reply code for FTP transports.
	StatusCode int

	// Message is the service's error text, if any.
	Message string

	Err error
}

func (e *RequestError) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (status %d)", e.Op, e.Message, e.StatusCode)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s (status %d)", e.Op, e.StatusCode)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the remote resource does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var re *RequestError
	return errors.As(err, &re) && re.StatusCode == http.StatusNotFound
}

// ftpError converts an FTP reply error into a RequestError. Reply 550
// (file unavailable) is the FTP equivalent of a 404.
func ftpError(op string, err error) error {
	var te *textproto.Error
	if errors.As(err, &te) {
		re := &RequestError{Op: op, StatusCode: te.Code, Message: te.Msg, Err: err}
		if te.Code == 550 {
			re.Err = fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return re
	}
	return fmt.Errorf("%s: %w", op, err)
}
