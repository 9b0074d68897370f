package handler

import (
	"errors"
	"net/http"

	"voicemailboard/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 클라이언트에게 보여줄 짧은 상태 메시지
const (
	msgInvalidCode        = "Invalid number format. Use # followed by 4 digits."
	msgCodeOccupied       = "This number is already in use. Please choose another number."
	msgMissingAudio       = "No audio was received."
	msgTranscode          = "The recording could not be processed."
	msgNotFound           = "No message was found for this number."
	msgBackendUnavailable = "Storage is currently unavailable. Please try again later."
	msgTooLarge           = "The recording is too large."
	msgInternal           = "A server error occurred."
)

// statusFor maps the error taxonomy onto the HTTP status and message.
func statusFor(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, models.ErrInvalidCode):
		return http.StatusBadRequest, msgInvalidCode
	case errors.Is(err, models.ErrMissingAudio):
		return http.StatusBadRequest, msgMissingAudio
	case errors.Is(err, models.ErrCodeOccupied):
		return http.StatusConflict, msgCodeOccupied
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, models.ErrBackendUnavailable):
		return http.StatusServiceUnavailable, msgBackendUnavailable
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, models.ErrTranscode):
		return http.StatusInternalServerError, msgTranscode
	}
	return http.StatusInternalServerError, msgInternal
}

func HandleServiceError(c *gin.Context, err error) {
	status, message := statusFor(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("HandleServiceError(): request failed")
	}
	ErrorResponse(c, status, message)
}

func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"message": message})
}
