package session

import (
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
)

// Status is the machine's coarse state.
type Status int

const (
	Uninitialized Status = iota
	Authenticating
	Authenticated
	Unauthenticated
)

func (s Status) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// State is a snapshot of the session. Empty strings and the zero time stand
// for absent tokens and an absent expiry.
type State struct {
	Status          Status
	User            *models.User
	AccessToken     string
	RefreshToken    string
	IsAuthenticated bool
	IsLoading       bool
	SessionExpiry   time.Time
}

// Initial is the state at process start: empty and loading.
func Initial() State {
	return State{Status: Uninitialized, IsLoading: true}
}

// Clone returns a copy that shares no mutable memory with s.
func (s State) Clone() State {
	s.User = s.User.Clone()
	return s
}

// Credentials returns the token pair held by s.
func (s State) Credentials() models.Credentials {
	return models.Credentials{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
}

// Equal compares two states field by field, including the user record.
func (s State) Equal(o State) bool {
	if s.Status != o.Status ||
		s.AccessToken != o.AccessToken ||
		s.RefreshToken != o.RefreshToken ||
		s.IsAuthenticated != o.IsAuthenticated ||
		s.IsLoading != o.IsLoading ||
		!s.SessionExpiry.Equal(o.SessionExpiry) {
		return false
	}
	return usersEqual(s.User, o.User)
}

// Valid reports whether s satisfies the package invariants.
func (s State) Valid() bool {
	complete := s.User != nil && s.AccessToken != "" && s.RefreshToken != ""
	if s.IsAuthenticated != complete {
		return false
	}
	if s.SessionExpiry.IsZero() == s.IsAuthenticated {
		return false
	}
	return (s.Status == Authenticated) == s.IsAuthenticated
}

func usersEqual(a, b *models.User) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.ID != b.ID || a.Email != b.Email || a.Role != b.Role ||
		a.EmailVerified != b.EmailVerified || a.TermsAccepted != b.TermsAccepted ||
		!a.CreatedAt.Equal(b.CreatedAt) || !a.UpdatedAt.Equal(b.UpdatedAt) {
		return false
	}
	if !strPtrEqual(a.Name, b.Name) || !strPtrEqual(a.AvatarURL, b.AvatarURL) {
		return false
	}
	switch {
	case a.LastLogin == nil || b.LastLogin == nil:
		return a.LastLogin == b.LastLogin
	default:
		return a.LastLogin.Equal(*b.LastLogin)
	}
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
