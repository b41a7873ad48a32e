package adapter

import (
	"errors"
	"fmt"
)

// Kind classifies adapter errors.
type Kind int

const (
	// KindConnection is any failure reported by the remote service.
	KindConnection Kind = iota + 1

	// KindNotFound is a missing resource. Existence checks turn it into false.
	KindNotFound

	// KindMalformed is unusable data in a response. It is logged and replaced
	// by a default, never returned from a public operation.
	KindMalformed

	// KindMisuse is a request the adapter refuses to send.
	KindMisuse
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindNotFound:
		return "not found"
	case KindMalformed:
		return "malformed"
	case KindMisuse:
		return "misuse"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrMissingJobName = errors.New("job has no name")
	ErrMissingJobID   = errors.New("job has no id")
	ErrMissingLocator = errors.New("spool file has no records url")
	ErrInvalidStepKey = errors.New("job step key must be <jobid>.<sequence>")
	ErrInvalidMode    = errors.New("mode must be 3 or 4 octal digits")
	ErrUnknownCharset = errors.New("unknown charset")
)

// Error is the single error type returned by the adapters.
type Error struct {
	Kind Kind

	// Op is the adapter operation, e.g. "cancel job".
	Op string

	// Subject names the job, path or value the operation was about.
	Subject string

	Err error
}

func (e *Error) Error() string {
	if e.Subject != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Subject, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == k
}

func connectionError(op, subject string, err error) error {
	return &Error{Kind: KindConnection, Op: op, Subject: subject, Err: err}
}

func misuse(op, subject string, err error) error {
	return &Error{Kind: KindMisuse, Op: op, Subject: subject, Err: err}
}
