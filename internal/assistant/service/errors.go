package service

import (
	"errors"

	"medassist/internal/booking"
	"medassist/internal/chat"
	apperrors "medassist/pkg/errors"
)

func mapWorkflowError(err error) error {
	if err == nil {
		return nil
	}

	var fieldErrs booking.FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		return apperrors.Validation("Booking form has invalid fields", fieldErrs.Details())
	case errors.Is(err, booking.ErrUnknownDoctor):
		return apperrors.Validation("Doctor is not in the directory", map[string]any{
			booking.FieldDoctor: "the selected doctor is not available",
		})
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrSubmitInProgress),
		errors.Is(err, booking.ErrWorkflowReset):
		return apperrors.Conflict(err.Error())
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.Internal("Booking workflow failed", err)
	}
}

func mapChatError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, chat.ErrEmptyMessage):
		return apperrors.InvalidInput(err.Error())
	case errors.Is(err, chat.ErrSendInProgress):
		return apperrors.Conflict(err.Error())
	case apperrors.IsAppError(err):
		return err
	default:
		return apperrors.Internal("Chat turn failed", err)
	}
}
