package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/sessionkeeper/internal/client/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
)

// endpoint selects how a non-2xx status is interpreted.
type endpoint int

const (
	endpointLogin endpoint = iota
	endpointRegister
	endpointRefresh
	endpointAuthenticated
	endpointLogout
)

// StatusError is a non-2xx response. It unwraps to the sentinel the status
// maps to for the endpoint that produced it.
type StatusError struct {
	Status  int
	Message string
	kind    error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s (status %d)", e.kind, e.Status)
	}
	return fmt.Sprintf("%s (status %d): %s", e.kind, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.kind }

// mapStatus turns an error response into a typed error.
func mapStatus(ep endpoint, status int, body models.ErrorBody) error {
	if status >= 500 {
		return &StatusError{Status: status, Message: body.Error, kind: common.ErrServer}
	}

	switch ep {
	case endpointLogin:
		switch status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &StatusError{Status: status, Message: body.Error, kind: common.ErrInvalidCredentials}
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			return &common.ValidationError{Message: body.Error, Details: body.Details}
		}
	case endpointRegister:
		switch status {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return &common.ValidationError{Message: body.Error, Details: body.Details}
		}
	case endpointRefresh:
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return &StatusError{Status: status, Message: body.Error, kind: common.ErrRefreshInvalid}
		}
	case endpointAuthenticated, endpointLogout:
		switch status {
		case http.StatusUnauthorized:
			return &StatusError{Status: status, Message: body.Error, kind: common.ErrUnauthorized}
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return &common.ValidationError{Message: body.Error, Details: body.Details}
		}
	}
	return &StatusError{Status: status, Message: body.Error, kind: common.ErrBadResponse}
}

func isUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}
