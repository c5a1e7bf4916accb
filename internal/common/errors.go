// Package common defines shared constants and sentinel errors used across
// the session client layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Identity service rejections.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidationFailed   = errors.New("validation failed")
	ErrRefreshInvalid     = errors.New("refresh token invalid")
	ErrUnauthorized       = errors.New("unauthorized")

	// Transport errors.
	ErrNetworkUnavailable = errors.New("network unavailable")
	ErrServer             = errors.New("server error")
	ErrBadResponse        = errors.New("malformed server response")

	// Local session errors.
	ErrStorageCorrupt   = errors.New("stored data corrupt")
	ErrSessionInvalid   = errors.New("session expiry undeterminable")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// ValidationError carries the server's displayable reason for rejecting a
// registration or profile change. Details holds optional field-level data
// exactly as the server sent it.
type ValidationError struct {
	Message string
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return ErrValidationFailed.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidationFailed.Error(), e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidationFailed }
