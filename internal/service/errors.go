package service

import (
	"context"
	"errors"

	"github.com/and161185/nimbly/internal/api"
	"github.com/and161185/nimbly/internal/errs"
)

// InputError is a local validation failure; Msg is shown to the user as is.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// Unwrap makes errors.Is(err, errs.ErrValidation) hold.
func (e *InputError) Unwrap() error { return errs.ErrValidation }

func invalid(msg string) error { return &InputError{Msg: msg} }

// UserMessage maps err to the single line shown by the user interface.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var in *InputError
	if errors.As(err, &in) {
		return in.Msg
	}
	if apiErr, ok := api.AsError(err); ok {
		return apiErr.Message
	}
	switch {
	case errors.Is(err, errs.ErrUnauthenticated):
		return "Your session has ended. Please sign in again."
	case errors.Is(err, errs.ErrBusy):
		return "Please wait for the current request to finish."
	case errors.Is(err, errs.ErrTransport):
		return "Unable to reach the server. Check your connection and try again."
	case errors.Is(err, errs.ErrBadResponse):
		return "The server sent an unexpected response."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request was cancelled."
	}
	return "Something went wrong."
}
