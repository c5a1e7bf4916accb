// Package client talks to the remote identity service.
//
// # Overview
//
// Client is the transport contract used by the session controller:
// Login, Register and Refresh return a grant; Logout invalidates the
// current access token; Me and UpdateProfile are authenticated calls.
// HTTPClient implements it over HTTP/JSON.
//
// # Authenticated requests
//
// Authenticated calls take a TokenSource. The request is sent with the
// source's current access token; when the service answers 401 the source
// is asked once for a renewed token and the request is replayed once. A
// second 401, or a failed renewal, is returned to the caller. Renewal
// policy, including coalescing of concurrent renewals, belongs to the
// TokenSource.
//
// # Errors
//
// Failures are reported with the sentinels of package common and can be
// matched with errors.Is: ErrInvalidCredentials, ErrValidationFailed,
// ErrRefreshInvalid, ErrUnauthorized, ErrNetworkUnavailable, ErrServer and
// ErrBadResponse.
package client
