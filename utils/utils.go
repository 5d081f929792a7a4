package utils

import (
	"Conspiracy/services/rooms"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Logger logs method, path, status and latency of each request
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		entry := logrus.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"latency": time.Since(startTime),
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"client":  c.ClientIP(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request served")
		}
	}
}

// StatusFor maps a room lifecycle error to its HTTP status
func StatusFor(err error) int {
	switch {
	case errors.Is(err, rooms.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, rooms.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, rooms.ErrPreconditionFailed), errors.Is(err, rooms.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, rooms.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorHandler renders the last error pushed by a handler with c.Error
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		status := StatusFor(err)

		message := err.Error()
		if status >= http.StatusInternalServerError {
			logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
			// store internals stay in the logs
			message = http.StatusText(status)
		}
		c.JSON(status, gin.H{"error": message})
	}
}
