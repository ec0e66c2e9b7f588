package voice

import (
	"errors"
	"fmt"
)

// Recognizer failure causes. Implementations wrap or return these so Capture can classify them.
var (
	ErrUnsupported      = errors.New("speech recognition unavailable")
	ErrPermissionDenied = errors.New("not-allowed")
	ErrNoDevice         = errors.New("audio-capture")
	ErrAborted          = errors.New("aborted")
)

// ErrorKind classifies capture failures.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindUnsupported
	KindPermission
	KindDevice
)

func (k ErrorKind) String() string {
	switch k {
	case KindUnsupported:
		return "unsupported"
	case KindPermission:
		return "permission"
	case KindDevice:
		return "device"
	default:
		return "other"
	}
}

// User-facing capture error messages.
const (
	MessageUnsupported = "Speech recognition is not supported here. Please use a different browser."
	MessagePermission  = "Please allow microphone access to use voice input."
	MessageDevice      = "No microphone was found. Please connect a microphone and try again."
	MessageOther       = "Error with speech recognition. Please try again."
)

// CaptureError is a classified recognizer failure.
type CaptureError struct {
	Kind ErrorKind
	Err  error
}

func (e *CaptureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("voice capture %s: %v", e.Kind, e.Err)
	}
	return "voice capture " + e.Kind.String()
}

func (e *CaptureError) Unwrap() error { return e.Err }

// Message returns the text shown to the user.
func (e *CaptureError) Message() string {
	switch e.Kind {
	case KindUnsupported:
		return MessageUnsupported
	case KindPermission:
		return MessagePermission
	case KindDevice:
		return MessageDevice
	default:
		return MessageOther
	}
}

// Transient reports whether an automatic restart may help.
func (e *CaptureError) Transient() bool {
	return e.Kind == KindOther
}

// Classify wraps err as a CaptureError.
func Classify(err error) *CaptureError {
	var ce *CaptureError
	if errors.As(err, &ce) {
		return ce
	}

	kind := KindOther
	switch {
	case errors.Is(err, ErrUnsupported):
		kind = KindUnsupported
	case errors.Is(err, ErrPermissionDenied):
		kind = KindPermission
	case errors.Is(err, ErrNoDevice):
		kind = KindDevice
	}
	return &CaptureError{Kind: kind, Err: err}
}
