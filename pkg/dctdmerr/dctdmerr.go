// Package dctdmerr defines the typed error taxonomy shared by the JPEG
// codec and the DCTDM embed/extract algorithm.
package dctdmerr

import "fmt"

// Kind classifies a failure so callers can branch on errors.Is/errors.As
// instead of parsing messages.
type Kind string

const (
	UnsupportedFormat    Kind = "unsupported_format"
	MalformedStream      Kind = "malformed_stream"
	CapacityExceeded     Kind = "capacity_exceeded"
	InvalidPayloadLength Kind = "invalid_payload_length"
	Truncated            Kind = "truncated"
	DecryptionFailed     Kind = "decryption_failed"
	PasswordRequired     Kind = "password_required"
	IOError              Kind = "io_error"
)

// Error wraps an underlying cause with a Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, dctdmerr.New(dctdmerr.Truncated, "", nil)) style checks
// work, but more commonly callers do errors.As(err, &kindErr) and compare
// kindErr.Kind directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error for the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrap is New with a formatted cause, mirroring the teacher's
// fmt.Errorf("op: %w", err) wrapping convention but tagged with a Kind.
func Wrap(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}
