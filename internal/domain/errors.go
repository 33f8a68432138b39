package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidURL is returned when the webhook URL is empty or not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid webhook url")
	// ErrInvalidHeader is returned when a configured header name or value violates HTTP grammar.
	ErrInvalidHeader = errors.New("invalid webhook header")
)

// ConfigError reports a notifier configuration that cannot be prepared.
type ConfigError struct {
	Err    error  // ErrInvalidURL or ErrInvalidHeader
	Header string // offending header name, empty for URL errors
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Header != "" {
		return fmt.Sprintf("%v %q: %s", e.Err, e.Header, e.Reason)
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// DeliveryError describes a failed webhook delivery. StatusCode is zero for transport failures.
type DeliveryError struct {
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook transport error: %v", e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
