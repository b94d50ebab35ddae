// Package apierr maps domain errors onto HTTP status codes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/monikerhub/resolver/internal/moniker"
)

var (
	ErrUnknownMoniker   = errors.New("unknown moniker")
	ErrNoBinding        = errors.New("no source binding on path or any ancestor")
	ErrTemplateMissing  = errors.New("unresolved template placeholder")
	ErrSuccessorCycle   = errors.New("successor chain exceeds max depth")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrForbidden        = errors.New("forbidden")
	ErrBreakingChange   = errors.New("reload rejected: breaking change detected")
	ErrRequestNotFound  = errors.New("request not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrBadNodeStatus    = errors.New("invalid node status transition")
)

// AppError carries an HTTP status alongside a wrapped cause.
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// MapError classifies err into an AppError per the propagation policy.
func MapError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	var parseErr *moniker.ParseError
	if errors.As(err, &parseErr) {
		return NewAppError(http.StatusBadRequest, parseErr.Error(), err)
	}

	switch {
	case errors.Is(err, moniker.ErrInvalidMoniker):
		return NewAppError(http.StatusBadRequest, "invalid moniker", err)
	case errors.Is(err, ErrUnknownMoniker):
		return NewAppError(http.StatusNotFound, "unknown moniker", err)
	case errors.Is(err, ErrNoBinding):
		return NewAppError(http.StatusNotFound, "no resolvable source binding", err)
	case errors.Is(err, ErrTemplateMissing):
		return NewAppError(http.StatusUnprocessableEntity, "template placeholder could not be resolved", err)
	case errors.Is(err, ErrSuccessorCycle):
		return NewAppError(http.StatusConflict, "successor chain too deep", err)
	case errors.Is(err, ErrUnauthorized):
		return NewAppError(http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, ErrForbidden):
		return NewAppError(http.StatusForbidden, "forbidden", err)
	case errors.Is(err, ErrBreakingChange):
		return NewAppError(http.StatusConflict, "reload rejected: breaking change detected", err)
	case errors.Is(err, ErrRequestNotFound):
		return NewAppError(http.StatusNotFound, "request not found", err)
	case errors.Is(err, ErrInvalidRequest):
		return NewAppError(http.StatusBadRequest, "invalid request", err)
	case errors.Is(err, ErrBadNodeStatus):
		return NewAppError(http.StatusConflict, "invalid status transition", err)
	default:
		return NewAppError(http.StatusInternalServerError, "internal server error", err)
	}
}
