package ldap

import (
	"errors"
	"fmt"

	"github.com/ansel1/merry"
)

// Is reports whether err is, or was caused by, one of originals.
func Is(err error, originals ...error) bool {
	return merry.Is(err, originals...)
}

// Details returns err's message, registered details and stack trace.
func Details(err error) string {
	return merry.Details(err)
}

var ErrClosed = errors.New("connection closed")
var ErrUnknownOperationTag = errors.New("unknown protocol operation tag")
var ErrMalformedMessage = errors.New("malformed LDAP message")
var ErrMalformedOperation = errors.New("malformed protocol operation")
var ErrMalformedControl = errors.New("malformed control")
var ErrNoSuchRequest = errors.New("no pending request with message id")
var ErrFilterRequired = errors.New("search filter is required")

// ResultError is a server response with a non-success result code,
// surfaced as an error.
type ResultError struct {
	Result
}

func (e *ResultError) Error() string {
	msg := fmt.Sprintf("ldap: %v (%d)", e.Code, int64(e.Code))
	if e.DiagnosticMessage != "" {
		msg += ": " + e.DiagnosticMessage
	}
	return msg
}

type errKey int

const (
	errorKeyResultCode errKey = iota
	errorKeyMatchedDN
	errorKeyResult
)

func init() {
	merry.RegisterDetail("Result Code", errorKeyResultCode)
	merry.RegisterDetail("Matched DN", errorKeyMatchedDN)
}

func newResultError(r Result) error {
	return merry.WrapSkipping(&ResultError{Result: r}, 2).
		WithValue(errorKeyResultCode, r.Code).
		WithValue(errorKeyMatchedDN, r.MatchedDN).
		WithValue(errorKeyResult, r)
}

// WithResultCode attaches a result code to err.  The dispatcher uses the
// client-side codes (81 and up) to classify local failures.
func WithResultCode(err error, code ResultCode) error {
	return merry.WithValue(err, errorKeyResultCode, code)
}

// GetResultCode returns the result code attached to err, or ResultSuccess
// when err carries none.
func GetResultCode(err error) ResultCode {
	v := merry.Value(err, errorKeyResultCode)
	switch t := v.(type) {
	case nil:
		return ResultSuccess
	case ResultCode:
		return t
	default:
		panic(fmt.Sprintf("err result code attribute's value was wrong type, expected ResultCode, got %T", v))
	}
}

// GetResult returns the full server result attached to err, if any.
// This is how callers retrieve referral URLs from a ResultReferral
// error.
func GetResult(err error) (Result, bool) {
	v, ok := merry.Value(err, errorKeyResult).(Result)
	return v, ok
}

// IsReferral reports whether err is a server referral response.
func IsReferral(err error) bool {
	return GetResultCode(err) == ResultReferral
}
