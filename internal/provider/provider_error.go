package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sony/gobreaker/v2"
)

// ProviderError is returned when a provider responds with a non-2xx status.
//
// RawResponse holds the provider response body bytes and must never include API keys.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Message     string
	RawResponse []byte
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

// Class buckets provider failures for the proxy's error taxonomy.
type Class int

const (
	// ClassUnknown is any failure the proxy cannot attribute.
	ClassUnknown Class = iota
	// ClassConfig means the deployment is misconfigured (missing or rejected credential).
	ClassConfig
	// ClassUnavailable means the provider is degraded; retrying later may succeed.
	ClassUnavailable
)

func (c Class) String() string {
	switch c {
	case ClassConfig:
		return "config"
	case ClassUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Classify maps a completion error onto a Class.
func Classify(err error) Class {
	if err == nil {
		return ClassUnknown
	}

	if errors.Is(err, ErrMissingCredential) {
		return ClassConfig
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, ErrThrottled) {
		return ClassUnavailable
	}

	var perr *ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		switch {
		case status == 401 || status == 403:
			return ClassConfig
		case status == 429 || status == 408:
			return ClassUnavailable
		case status >= 500 && status <= 599:
			return ClassUnavailable
		default:
			return ClassUnknown
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ClassUnavailable
	}

	if strings.Contains(err.Error(), "request failed") {
		return ClassUnavailable
	}

	return ClassUnknown
}
