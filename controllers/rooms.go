package controllers

import (
	"Conspiracy/models"
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RoomRegistry is the room lifecycle as seen by the HTTP layer
type RoomRegistry interface {
	CreateRoom(ctx context.Context, playerName string) (*models.Room, *models.Player, error)
	JoinRoom(ctx context.Context, code string, playerName string) (*models.Room, *models.Player, error)
	LeaveRoom(ctx context.Context, code string, playerID string) (*models.Room, error)
	UpdateSettings(ctx context.Context, code string, playerID string, patch models.SettingsPatch) (*models.Room, error)
	StartGame(ctx context.Context, code string, playerID string) (*models.Room, error)
	EndGame(ctx context.Context, code string, playerID string) (*models.Room, error)
	GetRoom(ctx context.Context, code string) (*models.Room, error)
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomResponse struct {
	RoomID   string              `json:"roomId"`
	RoomCode string              `json:"roomCode"`
	HostID   string              `json:"hostId"`
	State    models.RoomState    `json:"state"`
	Settings models.Settings     `json:"settings"`
	Players  []models.PlayerView `json:"players"`
}

type RoomCreated struct {
	RoomID   string            `json:"roomId"`
	RoomCode string            `json:"roomCode"`
	HostID   string            `json:"hostId"`
	State    models.RoomState  `json:"state"`
	Settings models.Settings   `json:"settings"`
	Player   models.PlayerView `json:"player"`
}

type RoomJoined struct {
	RoomResponse
	Player models.PlayerView `json:"player"`
}

func newRoomResponse(room *models.Room) RoomResponse {
	return RoomResponse{
		RoomID:   room.ID,
		RoomCode: room.Code,
		HostID:   room.HostID,
		State:    room.State,
		Settings: room.Settings,
		Players:  room.PlayerViews(),
	}
}

func sessionKey(code string) string {
	return "player:" + code
}

// rememberPlayer stores the caller's player id for the room in the session cookie
func rememberPlayer(c *gin.Context, code string, playerID string) {
	session := sessions.Default(c)
	session.Set(sessionKey(code), playerID)
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Could not save session")
	}
}

func forgetPlayer(c *gin.Context, code string) {
	session := sessions.Default(c)
	session.Delete(sessionKey(code))
	if err := session.Save(); err != nil {
		logrus.WithError(err).Warn("Could not save session")
	}
}

// resolvePlayerID prefers the id in the body, then the one remembered by the session
func resolvePlayerID(c *gin.Context, code string, fromBody string) (string, bool) {
	if fromBody != "" {
		return fromBody, true
	}
	if id, ok := sessions.Default(c).Get(sessionKey(code)).(string); ok && id != "" {
		return id, true
	}
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "playerId is required"})
	return "", false
}

// bindOptional binds a JSON body that may be missing altogether
func bindOptional(c *gin.Context, obj interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return false
	}
	return true
}

// @Summary Create a room
// @Description Creates a LOBBY room with the caller as host
// @Tags rooms
// @Accept json
// @Produce json
// @Param body body models.RoomCreation true "Host name"
// @Success 201 {object} RoomCreated
// @Failure 400 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /rooms [post]
func CreateRoom(registry RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var request models.RoomCreation
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		room, player, err := registry.CreateRoom(c.Request.Context(), request.PlayerName)
		if err != nil {
			c.Error(err)
			return
		}
		rememberPlayer(c, room.Code, player.ID)

		c.JSON(http.StatusCreated, RoomCreated{
			RoomID:   room.ID,
			RoomCode: room.Code,
			HostID:   room.HostID,
			State:    room.State,
			Settings: room.Settings,
			Player:   models.PlayerView{ID: player.ID, Name: player.Name, IsHost: true},
		})
	}
}

// @Summary Join a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param body body models.RoomCreation true "Player name"
// @Success 200 {object} RoomJoined
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rooms/{code}/join [post]
func JoinRoom(registry RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		var request models.RoomCreation
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}

		room, player, err := registry.JoinRoom(c.Request.Context(), code, request.PlayerName)
		if err != nil {
			c.Error(err)
			return
		}
		rememberPlayer(c, room.Code, player.ID)

		c.JSON(http.StatusOK, RoomJoined{
			RoomResponse: newRoomResponse(room),
			Player:       models.PlayerView{ID: player.ID, Name: player.Name, IsHost: room.IsHost(player.ID)},
		})
	}
}

// @Summary Get a room
// @Tags rooms
// @Produce json
// @Param code path string true "Room code"
// @Success 200 {object} RoomResponse
// @Failure 404 {object} ErrorResponse
// @Router /rooms/{code} [get]
func GetRoom(registry RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		room, err := registry.GetRoom(c.Request.Context(), c.Param("code"))
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, newRoomResponse(room))
	}
}

// @Summary Leave a room
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param body body models.RoomAction false "Player id, defaults to the session"
// @Success 200 {object} RoomResponse
// @Failure 404 {object} ErrorResponse
// @Router /rooms/{code}/leave [post]
func LeaveRoom(registry RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		var request models.RoomAction
		if !bindOptional(c, &request) {
			return
		}
		playerID, ok := resolvePlayerID(c, code, request.PlayerID)
		if !ok {
			return
		}

		room, err := registry.LeaveRoom(c.Request.Context(), code, playerID)
		if err != nil {
			c.Error(err)
			return
		}
		forgetPlayer(c, code)
		c.JSON(http.StatusOK, newRoomResponse(room))
	}
}

// @Summary Update the settings of a room (host only)
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param body body models.SettingsUpdate true "Settings patch"
// @Success 200 {object} RoomResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rooms/{code}/settings [post]
func UpdateSettings(registry RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		var request models.SettingsUpdate
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		playerID, ok := resolvePlayerID(c, code, request.PlayerID)
		if !ok {
			return
		}

		room, err := registry.UpdateSettings(c.Request.Context(), code, playerID, request.Settings)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, newRoomResponse(room))
	}
}

// @Summary Start the game (host only)
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param body body models.RoomAction false "Player id, defaults to the session"
// @Success 200 {object} RoomResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rooms/{code}/start [post]
func StartGame(registry RoomRegistry) gin.HandlerFunc {
	return hostAction(registry.StartGame)
}

// @Summary End the game (host only)
// @Tags rooms
// @Accept json
// @Produce json
// @Param code path string true "Room code"
// @Param body body models.RoomAction false "Player id, defaults to the session"
// @Success 200 {object} RoomResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /rooms/{code}/end [post]
func EndGame(registry RoomRegistry) gin.HandlerFunc {
	return hostAction(registry.EndGame)
}

func hostAction(action func(ctx context.Context, code string, playerID string) (*models.Room, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		var request models.RoomAction
		if !bindOptional(c, &request) {
			return
		}
		playerID, ok := resolvePlayerID(c, code, request.PlayerID)
		if !ok {
			return
		}

		room, err := action(c.Request.Context(), code, playerID)
		if err != nil {
			c.Error(err)
			return
		}
		c.JSON(http.StatusOK, newRoomResponse(room))
	}
}
