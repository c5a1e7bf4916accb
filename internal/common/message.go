package common

import (
	"context"
	"errors"
	"strings"
)

// UserMessage renders err as a single human-readable line suitable for
// direct display. Raw transport or decoding errors are never returned
// verbatim.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		if msg := oneLine(ve.Message); msg != "" {
			return msg
		}
		return "Please check your information and try again."
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, ErrRefreshInvalid):
		return "Your session has expired. Please log in again."
	case errors.Is(err, ErrSessionInvalid):
		return "The server issued an unusable session. Please log in again."
	case errors.Is(err, ErrNotAuthenticated), errors.Is(err, ErrUnauthorized):
		return "You are not logged in."
	case errors.Is(err, ErrNetworkUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, ErrServer):
		return "The server could not process the request. Try again later."
	case errors.Is(err, ErrBadResponse):
		return "The server sent an unexpected response."
	case errors.Is(err, ErrStorageCorrupt):
		return "Saved session data could not be read."
	default:
		return "An unexpected error occurred."
	}
}

func oneLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
