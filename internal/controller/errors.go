package controller

import (
	"errors"
	"net/http"
	"student_forms/internal/client"
	"student_forms/internal/util"
)

// statusFor maps service errors to an HTTP status and a message that is safe
// to show the user.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, util.ErrNoSession):
		return http.StatusUnauthorized, "Please login to continue"
	case errors.Is(err, util.ErrMissingCredentials):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, util.ErrRegistrationFailed):
		return http.StatusBadGateway, util.MsgRegistrationFailed
	case errors.Is(err, util.ErrFormLoad), errors.Is(err, client.ErrUpstream):
		return http.StatusBadGateway, util.MsgFormLoadFailed
	case errors.Is(err, util.ErrInvalidState), errors.Is(err, util.ErrAtFirstSection):
		return http.StatusConflict, err.Error()
	case errors.Is(err, util.ErrUnknownField), errors.Is(err, util.ErrInvalidFieldValue):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, util.ErrStudentNotFound), errors.Is(err, util.ErrFormNotFound):
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
