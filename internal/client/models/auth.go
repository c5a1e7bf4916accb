package models

import "encoding/json"

// Credentials is the bearer pair issued by the identity service.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

// LoginRequest is the body of POST /auth/login. Credentials arrive here
// already validated by the caller.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AgreeToTerms    bool   `json:"agree_to_terms"`
}

// RefreshRequest is the body of POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UpdateProfileRequest is the body of PUT /users/profile.
type UpdateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// AuthResponse is the grant returned by login, register and refresh.
// ExpiresIn is expressed in the unit the server declares (seconds by default).
type AuthResponse struct {
	User         User   `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (r *AuthResponse) Credentials() Credentials {
	return Credentials{AccessToken: r.Token, RefreshToken: r.RefreshToken}
}

// Envelope wraps every successful identity service response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// ErrorBody is the identity service's error payload.
type ErrorBody struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}
