package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mesdirectives/access-api/pkg/errors"
)

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Kind    string      `json:"error_kind,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondError maps an application error onto the HTTP surface. The
// validation taxonomy keeps its French user-facing messages; everything
// unknown collapses to a 500 without leaking the cause.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, NewErrorResponse("internal server error"))
		return
	}

	status := http.StatusInternalServerError
	switch appErr.Code {
	case errors.ErrInvalidOrExpiredCode, errors.ErrNotFound, errors.ErrProfileNotFound:
		status = http.StatusNotFound
	case errors.ErrIdentityMismatch, errors.ErrForbidden:
		status = http.StatusForbidden
	case errors.ErrUnauthorized:
		status = http.StatusUnauthorized
	case errors.ErrBadRequest:
		status = http.StatusBadRequest
	}

	c.JSON(status, &Response{
		Status:  "error",
		Message: appErr.Message,
		Kind:    appErr.Kind(),
	})
}
