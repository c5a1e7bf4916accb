// Package models holds the data exchanged with the identity service and
// cached locally by the session client.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity service's account record.
type User struct {
	ID            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          *string    `json:"name,omitempty"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	Role          string     `json:"role"`
	EmailVerified bool       `json:"email_verified"`
	TermsAccepted bool       `json:"terms_accepted"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
}

// Clone returns a deep copy of u. A nil receiver yields nil.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Name != nil {
		name := *u.Name
		c.Name = &name
	}
	if u.AvatarURL != nil {
		avatar := *u.AvatarURL
		c.AvatarURL = &avatar
	}
	if u.LastLogin != nil {
		last := *u.LastLogin
		c.LastLogin = &last
	}
	return &c
}

// DisplayName is the name when set, the email otherwise.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return u.Email
}

// UserPatch lists profile fields to overwrite; nil fields are left alone.
type UserPatch struct {
	Name          *string
	Email         *string
	AvatarURL     *string
	EmailVerified *bool
	UpdatedAt     *time.Time
	LastLogin     *time.Time
}

// IsEmpty reports whether p changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.AvatarURL == nil &&
		p.EmailVerified == nil && p.UpdatedAt == nil && p.LastLogin == nil
}

// Apply returns a copy of u with p applied. u itself is not modified.
func (u *User) Apply(p UserPatch) *User {
	c := u.Clone()
	if c == nil {
		return nil
	}
	if p.Name != nil {
		name := *p.Name
		c.Name = &name
	}
	if p.Email != nil {
		c.Email = *p.Email
	}
	if p.AvatarURL != nil {
		avatar := *p.AvatarURL
		c.AvatarURL = &avatar
	}
	if p.EmailVerified != nil {
		c.EmailVerified = *p.EmailVerified
	}
	if p.UpdatedAt != nil {
		c.UpdatedAt = *p.UpdatedAt
	}
	if p.LastLogin != nil {
		last := *p.LastLogin
		c.LastLogin = &last
	}
	return c
}

// UserProfile is the public projection returned by the profile endpoints.
type UserProfile struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Name      *string    `json:"name,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
}

// Patch converts the editable parts of a profile into a UserPatch.
func (p UserProfile) Patch() UserPatch {
	email := p.Email
	patch := UserPatch{Email: &email, Name: p.Name, AvatarURL: p.AvatarURL}
	if p.LastLogin != nil {
		patch.LastLogin = p.LastLogin
	}
	return patch
}

// Patch returns a patch that overwrites every mutable field with u's values.
func (u *User) Patch() UserPatch {
	c := u.Clone()
	return UserPatch{
		Name:          c.Name,
		Email:         &c.Email,
		AvatarURL:     c.AvatarURL,
		EmailVerified: &c.EmailVerified,
		UpdatedAt:     &c.UpdatedAt,
		LastLogin:     c.LastLogin,
	}
}
