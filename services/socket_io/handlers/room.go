package handlers

import (
	"Conspiracy/models"
	socketio_types "Conspiracy/services/socket_io/types"
	"Conspiracy/services/rooms"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/socket.io/v2/socket"
)

const lookupTimeout = 5 * time.Second

// RoomLookup is the read side of the room registry needed by the socket handlers
type RoomLookup interface {
	GetRoom(ctx context.Context, code string) (*models.Room, error)
}

// ParseJoinArgs extracts (code, playerId) from a join_room event
func ParseJoinArgs(args []interface{}) (string, string, error) {
	if len(args) < 2 {
		return "", "", errors.New("room code and player id are required")
	}
	code, ok := args[0].(string)
	if !ok || code == "" {
		return "", "", errors.New("invalid room code")
	}
	playerID, ok := args[1].(string)
	if !ok || playerID == "" {
		return "", "", errors.New("invalid player id")
	}
	return code, playerID, nil
}

// CheckMembership returns the room if playerID is seated in it
func CheckMembership(ctx context.Context, lookup RoomLookup, code string, playerID string) (*models.Room, error) {
	room, err := lookup.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.HasPlayer(playerID) {
		return nil, fmt.Errorf("%w: player %s is not in room %s", rooms.ErrForbidden, playerID, code)
	}
	return room, nil
}

// HandleJoinRoom subscribes the client to the events of a room it is seated in
func HandleJoinRoom(lookup RoomLookup, client *socket.Socket, sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		logCtx := logrus.WithField("socket_id", client.Id())

		code, playerID, err := ParseJoinArgs(args)
		if err != nil {
			client.Emit("error", gin.H{"error": err.Error()})
			return
		}
		logCtx = logCtx.WithFields(logrus.Fields{"room_code": code, "player_id": playerID})

		ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
		defer cancel()
		room, err := CheckMembership(ctx, lookup, code, playerID)
		if err != nil {
			logCtx.WithError(err).Warn("Rejected room subscription")
			client.Emit("error", gin.H{"error": publicMessage(err)})
			return
		}

		client.Join(socket.Room(code))
		sio.AddSubscription(client.Id(), code)

		client.Emit("room_joined", gin.H{
			"roomCode": room.Code,
			"hostId":   room.HostID,
			"state":    room.State,
			"settings": room.Settings,
			"players":  room.PlayerViews(),
		})
		logCtx.Info("Client subscribed to room")
	}
}

// HandleLeaveRoom unsubscribes the client from a room's events
func HandleLeaveRoom(client *socket.Socket, sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		if len(args) < 1 {
			client.Emit("error", gin.H{"error": "room code is required"})
			return
		}
		code, ok := args[0].(string)
		if !ok {
			client.Emit("error", gin.H{"error": "invalid room code"})
			return
		}

		client.Leave(socket.Room(code))
		if sio.RemoveSubscription(client.Id(), code) {
			logrus.WithFields(logrus.Fields{"socket_id": client.Id(), "room_code": code}).Info("Client unsubscribed from room")
		}
		client.Emit("room_left", gin.H{"roomCode": code})
	}
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, rooms.ErrNotFound):
		return "room not found"
	case errors.Is(err, rooms.ErrForbidden):
		return "you are not a member of this room"
	default:
		return "room lookup failed"
	}
}
