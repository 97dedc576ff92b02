package usecase

import (
	"fmt"

	"portfolio-chat/internal/ratelimit"
)

type ErrorCode string

const (
	ErrorInvalidInput      ErrorCode = "INVALID_INPUT"
	ErrorRateLimited       ErrorCode = "RATE_LIMITED"
	ErrorMissingCredential ErrorCode = "MISSING_CREDENTIAL"
	ErrorUpstreamTimeout   ErrorCode = "UPSTREAM_TIMEOUT"
	ErrorUpstream          ErrorCode = "UPSTREAM_ERROR"
	ErrorInternal          ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
	// RateLimit carries the limit metadata for RATE_LIMITED errors so the
	// transport layer can emit Retry-After and X-RateLimit-* headers.
	RateLimit ratelimit.Result
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

func newRateLimitError(res ratelimit.Result) *Error {
	return &Error{Code: ErrorRateLimited, Reason: "quota_exhausted", RateLimit: res}
}
