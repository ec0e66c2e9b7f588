package proxy

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/errors"

	apperrors "github.com/bffagent/bffagent/internal/errors"
)

// Public messages for failures whose detail must stay server-side.
const (
	MessageServerConfig = "Server configuration error"
	MessageUnavailable  = "AI service is temporarily unavailable. Please try again later."
	MessageInternal     = "Internal server error"
)

// Error is a pipeline failure. Message is safe to return to callers; Err is logged only.
type Error struct {
	Code       string
	Message    string
	RetryAfter int
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error code.
func (e *Error) Status() int { return apperrors.HTTPStatusFromCode(e.Code) }

// Type returns the chat error type name.
func (e *Error) Type() string { return apperrors.ChatErrorType(e.Code) }

// Envelope converts the error into a gofulmen envelope carrying the request correlation ID.
func (e *Error) Envelope(ctx context.Context) *errors.ErrorEnvelope {
	env := apperrors.Wrap(ctx, e.Code, e.Err, e.Message)
	severity := errors.SeverityMedium
	if e.Code == apperrors.CodeServerConfig || e.Code == apperrors.CodeInternal {
		severity = errors.SeverityHigh
	}
	if updated, err := env.WithSeverity(severity); err == nil {
		env = updated
	}
	return env
}
