package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/uroflux/intake-api/pkg/apperror"
)

// ErrorResponse is the error envelope. Code is the application error code,
// not the HTTP status.
type ErrorResponse struct {
	Code      apperror.ErrorCode `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"request_id,omitempty"`
}

// ErrorHandler converts errors attached to the gin context into a JSON
// response after the handler chain runs. Application errors keep their code
// and message; anything else is masked as an internal error so upstream
// details never leak to callers.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		if c.Writer.Written() {
			return
		}

		var appErr *apperror.AppError
		if !errors.As(c.Errors.Last().Err, &appErr) {
			appErr = apperror.Internal(c.Errors.Last().Err)
		}

		c.JSON(appErr.StatusCode(), ErrorResponse{
			Code:      appErr.Code,
			Message:   appErr.Message,
			RequestID: requestID,
		})
	}
}
