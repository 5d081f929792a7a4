package controllers

import (
	"Conspiracy/services/cleanup"
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RoomJanitor is the operator side of the cleanup scheduler
type RoomJanitor interface {
	Stats(ctx context.Context) (*cleanup.Stats, error)
	PerformPeriodicSweep(ctx context.Context) (cleanup.SweepReport, error)
	Purge(ctx context.Context, roomID string) error
}

// @Summary Room counts and pending cleanups
// @Tags admin
// @Produce json
// @Success 200 {object} cleanup.Stats
// @Failure 401 {object} ErrorResponse
// @Router /admin/stats [get]
// @Security BearerAuth
func AdminStats(janitor RoomJanitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := janitor.Stats(c.Request.Context())
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// @Summary Run the periodic sweep now
// @Tags admin
// @Produce json
// @Success 200 {object} cleanup.SweepReport
// @Failure 401 {object} ErrorResponse
// @Router /admin/cleanup [post]
// @Security BearerAuth
func AdminCleanup(janitor RoomJanitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := janitor.PerformPeriodicSweep(c.Request.Context())
		if err != nil {
			// a partial sweep still removed rooms
			logrus.WithError(err).Warn("Manual cleanup finished with errors")
		}
		c.JSON(http.StatusOK, report)
	}
}

// @Summary Delete a room right away
// @Tags admin
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} ErrorResponse
// @Router /admin/rooms/{code} [delete]
// @Security BearerAuth
func AdminDeleteRoom(registry RoomRegistry, janitor RoomJanitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		room, err := registry.GetRoom(c.Request.Context(), code)
		if err != nil {
			c.Error(err)
			return
		}
		if err := janitor.Purge(c.Request.Context(), room.ID); err != nil {
			c.Error(err)
			return
		}
		logrus.WithFields(logrus.Fields{"room_code": code, "room_id": room.ID}).Info("Room deleted by an operator")
		c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
	}
}
