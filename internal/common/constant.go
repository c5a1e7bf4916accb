// Package common contains shared constants and sentinel errors used across
// session client components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on outbound
	// requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName carries a per-request correlation ID.
	RequestIDHeaderName = "X-Request-ID"
)
