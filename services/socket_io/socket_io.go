package socket_io

import (
	"Conspiracy/services/socket_io/handlers"
	socketio_types "Conspiracy/services/socket_io/types"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/log"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

type MySocketServer socketio_types.SocketServer

// Start registers the event handlers and mounts the socket.io endpoint on router
func (sio *MySocketServer) Start(router *gin.Engine, lookup handlers.RoomLookup, allowedOrigins []string) {
	log.DEBUG = logrus.IsLevelEnabled(logrus.DebugLevel)
	c := socket.DefaultServerOptions()
	c.SetServeClient(true)
	// NOTE: higher ping interval and timeout to 1) reduce network load and 2) support slower networks
	c.SetPingInterval(5 * time.Second)
	c.SetPingTimeout(3 * time.Second)
	c.SetMaxHttpBufferSize(1000000)
	c.SetConnectTimeout(10 * time.Second)
	c.SetTransports(types.NewSet("polling", "websocket"))
	c.SetCors(&types.Cors{
		Origin:      corsOrigin(allowedOrigins),
		Credentials: true,
	})

	server := (*socketio_types.SocketServer)(sio)
	if sio.Sio_server == nil {
		sio.Sio_server = socket.NewServer(nil, nil)
	}
	if sio.Subscriptions == nil {
		sio.Subscriptions = make(map[socket.SocketId]map[string]struct{})
	}

	sio.Sio_server.On("connection", func(clients ...interface{}) {
		client := clients[0].(*socket.Socket)
		logrus.WithField("socket_id", client.Id()).Info("Client connected")

		// Subscribe to the events of a room the player is seated in
		client.On("join_room", handlers.HandleJoinRoom(lookup, client, server))

		// Stop receiving the events of a room
		client.On("leave_room", handlers.HandleLeaveRoom(client, server))

		// NOTE: will remove the subscriptions of the connection
		client.On("disconnecting", handlers.HandleDisconnecting(client, server))
	})

	handler := gin.WrapH(sio.Sio_server.ServeHandler(c))
	router.POST("/socket.io/*f", handler)
	router.GET("/socket.io/*f", handler)

	logrus.Info("Socket server started")
}

func corsOrigin(allowedOrigins []string) interface{} {
	if len(allowedOrigins) == 0 {
		return "*"
	}
	return allowedOrigins
}
