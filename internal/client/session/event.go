package session

import (
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
)

// Event is an input to Reduce. The concrete types below are the only
// implementations.
type Event interface {
	isEvent()
}

// InitStarted moves a fresh machine into Authenticating before storage is read.
type InitStarted struct{}

// LoadingStarted marks an in-flight login or registration.
type LoadingStarted struct{}

// LoadingFinished clears the loading flag without touching the session.
type LoadingFinished struct{}

// Granted commits a new session from login, registration, refresh or a
// restored snapshot. Expiry must already be resolved by the caller.
type Granted struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// LoggedOut resets the session. It is used for explicit logout as well as
// every session-fatal failure.
type LoggedOut struct{}

// UserUpdated overwrites profile fields of the current user.
type UserUpdated struct {
	Patch models.UserPatch
}

func (InitStarted) isEvent()     {}
func (LoadingStarted) isEvent()  {}
func (LoadingFinished) isEvent() {}
func (Granted) isEvent()         {}
func (LoggedOut) isEvent()       {}
func (UserUpdated) isEvent()     {}
