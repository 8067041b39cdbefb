package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coeurdepaille/matching-service/internal/apperr"
)

// Response is the uniform JSON envelope. Code 0 means success; errors
// echo the HTTP status.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a success envelope with data.
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: "success", Data: data})
}

// OKMessage writes a success envelope with a custom message.
func OKMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{Code: 0, Message: message, Data: data})
}

// Fail writes an error envelope with an explicit status.
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Code: status, Message: message})
}

// FailErr maps a service error onto its HTTP status and writes the
// envelope. Internal errors keep their detail out of the response body.
func FailErr(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	Fail(c, status, msg)
}
