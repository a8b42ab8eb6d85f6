package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// TransientError is a failure worth retrying: rate limits, timeouts and
// server-side 5xx responses.
type TransientError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (err *TransientError) Error() string {
	if err.StatusCode > 0 {
		return fmt.Sprintf("%s: transient error (status %d): %v", err.Provider, err.StatusCode, err.Err)
	}
	return fmt.Sprintf("%s: transient error: %v", err.Provider, err.Err)
}

func (err *TransientError) Unwrap() error { return err.Err }

// FatalError is a failure retrying cannot fix: bad credentials, an unknown
// model or a malformed request. It aborts the backend's whole run.
type FatalError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (err *FatalError) Error() string {
	if err.StatusCode > 0 {
		return fmt.Sprintf("%s: fatal error (status %d): %v", err.Provider, err.StatusCode, err.Err)
	}
	return fmt.Sprintf("%s: fatal error: %v", err.Provider, err.Err)
}

func (err *FatalError) Unwrap() error { return err.Err }

// IsTransient reports whether err is or wraps a TransientError.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is or wraps a FatalError.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// Fatalf builds a FatalError with a formatted message.
func Fatalf(provider, format string, args ...any) error {
	return &FatalError{Provider: provider, Err: fmt.Errorf(format, args...)}
}

// statusError classifies a non-2xx HTTP response.
func statusError(provider string, status int, body string) error {
	cause := fmt.Errorf("%s", summarizeBody(body))
	if transientStatus(status) {
		return &TransientError{Provider: provider, StatusCode: status, Err: cause}
	}
	return &FatalError{Provider: provider, StatusCode: status, Err: cause}
}

func transientStatus(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusConflict, http.StatusTooEarly, http.StatusTooManyRequests:
		return true
	}
	return status >= 500
}

// transportError classifies a failure that happened before a status code
// was received. Cancellation passes through unchanged.
func transportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return &TransientError{Provider: provider, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &TransientError{Provider: provider, Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &TransientError{Provider: provider, Err: err}
	}
	return &FatalError{Provider: provider, Err: err}
}

func summarizeBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return "empty response body"
	}
	const limit = 300
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}
