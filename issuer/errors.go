package issuer

import (
	"fmt"

	"github.com/pkg/errors"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

// Error kinds. A RequestError unwraps to exactly one of these.
var (
	ErrInputValidation = errors.New("input validation error")
	ErrAuthorization   = errors.New("authorization error")
	ErrTransport       = errors.New("transport error")
	ErrProtocol        = errors.New("protocol error")
	ErrConfiguration   = errors.New("configuration error")
)

// RequestError describes a request that did not produce a 2xx response.
type RequestError struct {
	Kind error

	// Status is undefined when no response was received.
	Status ldvalue.OptionalInt

	Message string
	Body    string
	Cause   error
}

func (e *RequestError) Error() string {
	var msg string
	if e.Status.IsDefined() {
		msg = fmt.Sprintf("%s: status %d", e.Kind, e.Status.IntValue())
	} else {
		msg = e.Kind.Error()
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *RequestError) Unwrap() error { return e.Kind }

func kindForStatus(status int) error {
	switch status {
	case 400:
		return ErrInputValidation
	case 401:
		return ErrAuthorization
	default:
		return ErrProtocol
	}
}

// ConfigurationError means an issuer is configured in a way that prevents the harness from
// calling it at all, such as a missing secret seed.
type ConfigurationError struct {
	Issuer string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("issuer %s is misconfigured: %s", e.Issuer, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configurationError(issuer string, err error) error {
	return &ConfigurationError{Issuer: issuer, Err: err}
}
