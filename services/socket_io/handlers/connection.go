package handlers

import (
	socketio_types "Conspiracy/services/socket_io/types"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/socket.io/v2/socket"
)

// HandleDisconnecting drops the subscriptions of a closing connection.
// socket.io leaves the rooms by itself; leaving the game is an explicit REST call.
func HandleDisconnecting(client *socket.Socket, sio *socketio_types.SocketServer) func(args ...interface{}) {
	return func(args ...interface{}) {
		codes := sio.RemoveConnection(client.Id())
		logrus.WithFields(logrus.Fields{
			"socket_id": client.Id(),
			"rooms":     codes,
		}).Info("Client disconnected")
	}
}
