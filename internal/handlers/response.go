package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/streamvault-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, ae *apierr.Error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	msg := "unknown error"
	if ae != nil {
		if ae.Status != 0 {
			status = ae.Status
		}
		code = ae.Code
		if ae.Err != nil {
			msg = ae.Err.Error()
		}
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
