// Package toolerr implements the closed error taxonomy (§4.5): status-code
// to error-code mapping, retryability, and detail attachment. It generalises
// the teacher's internal/client/categorize.go (ErrorCategory + CategorizeError)
// from a metrics-label enum to the full structured ErrorRecord the tool
// envelope needs.
package toolerr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kjstillabower/weathertools/internal/models"
)

// Error wraps a models.ErrorRecord so it satisfies the error interface and
// can be propagated with errors.As/errors.Is through the pipeline.
type Error struct {
	Record models.ErrorRecord
}

func (e *Error) Error() string { return e.Record.Message }

// New constructs an *Error for code with message, retryability derived
// automatically from code.
func New(code models.ErrorCode, message string) *Error {
	return &Error{Record: models.ErrorRecord{
		Code:      code,
		Message:   message,
		Retryable: models.Retryable(code),
	}}
}

// WithDetails attaches details to an error and returns it (builder-style).
func (e *Error) WithDetails(d models.ErrorDetails) *Error {
	e.Record.Details = &d
	return e
}

// WithRequestID attaches a request id to the error's details.
func (e *Error) WithRequestID(id string) *Error {
	if e.Record.Details == nil {
		e.Record.Details = &models.ErrorDetails{}
	}
	e.Record.Details.RequestID = id
	return e
}

// Invalid, OutOfCoverage, RateLimited, Unavailable, Internal are convenience
// constructors for the five closed-set codes.
func Invalid(format string, args ...any) *Error {
	return New(models.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func OutOfCoverage(message string, loc *models.Coordinate) *Error {
	e := New(models.ErrOutOfCoverage, message)
	if loc != nil {
		e.Record.Details = &models.ErrorDetails{Location: loc}
	}
	return e
}

func RateLimited(message string, retryAfterSeconds *int) *Error {
	e := New(models.ErrRateLimited, message)
	if retryAfterSeconds != nil {
		e.Record.Details = &models.ErrorDetails{RetryAfterSeconds: retryAfterSeconds}
	}
	return e
}

func Unavailable(format string, args ...any) *Error {
	return New(models.ErrUpstreamUnavailable, fmt.Sprintf(format, args...))
}

func Internal(format string, args ...any) *Error {
	return New(models.ErrInternal, fmt.Sprintf(format, args...))
}

// AsToolError extracts an *Error from err if it (or something it wraps) is
// one. Any function in the pipeline that encounters an already-typed error
// must re-raise it unchanged per §4.5; this helper is how callers check
// that without accidentally re-wrapping.
func AsToolError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// Wrap converts a raw I/O failure into an INTERNAL_ERROR *Error, unless err
// already carries a typed record, in which case it is returned unchanged.
func Wrap(err error) *Error {
	if te, ok := AsToolError(err); ok {
		return te
	}
	return Internal("internal error: %v", err)
}

// FromHTTPStatus implements the §4.5 status→code map for a non-2xx upstream
// response. retryAfterSeconds is only meaningful (and only read) when the
// resulting code is RATE_LIMITED.
func FromHTTPStatus(status int, upstreamMessage string, retryAfterSeconds *int, requestID string) *Error {
	code := codeForStatus(status)
	msg := upstreamMessage
	if msg == "" {
		msg = fmt.Sprintf("upstream returned HTTP %d", status)
	}
	e := New(code, msg)
	d := models.ErrorDetails{UpstreamStatus: &status, RequestID: requestID}
	if code == models.ErrRateLimited && retryAfterSeconds != nil {
		d.RetryAfterSeconds = retryAfterSeconds
	}
	e.Record.Details = &d
	return e
}

func codeForStatus(status int) models.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound:
		return models.ErrInvalidInput
	case http.StatusForbidden:
		return models.ErrInternal
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return models.ErrRateLimited
	}
	if status >= 500 {
		return models.ErrUpstreamUnavailable
	}
	return models.ErrInternal
}

// SummaryText renders the user-visible text summary for an error record:
// the message, optionally suffixed with a retry-after note (§4.4, §7).
func SummaryText(rec models.ErrorRecord) string {
	msg := rec.Message
	if rec.Details != nil && rec.Details.RetryAfterSeconds != nil {
		msg = fmt.Sprintf("%s Retry after %d seconds.", msg, *rec.Details.RetryAfterSeconds)
	}
	return msg
}
