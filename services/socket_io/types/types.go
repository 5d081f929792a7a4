package socketio_types

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/socket.io/v2/socket"
)

// SocketServer holds the socket.io server and the room codes each connection
// subscribed to. It is also the Notifier of the room registry: events are
// emitted to the socket.io room named by the room code.
type SocketServer struct {
	Sio_server *socket.Server
	// Map to track socket id -> subscribed room codes
	Subscriptions map[socket.SocketId]map[string]struct{}
	mutex         sync.RWMutex
}

func NewSocketServer() *SocketServer {
	return &SocketServer{
		Sio_server:    socket.NewServer(nil, nil),
		Subscriptions: make(map[socket.SocketId]map[string]struct{}),
	}
}

func (s *SocketServer) AddSubscription(id socket.SocketId, roomCode string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	codes, ok := s.Subscriptions[id]
	if !ok {
		codes = make(map[string]struct{})
		s.Subscriptions[id] = codes
	}
	codes[roomCode] = struct{}{}
}

// RemoveSubscription reports whether the connection was subscribed to roomCode
func (s *SocketServer) RemoveSubscription(id socket.SocketId, roomCode string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	codes, ok := s.Subscriptions[id]
	if !ok {
		return false
	}
	if _, ok := codes[roomCode]; !ok {
		return false
	}
	delete(codes, roomCode)
	if len(codes) == 0 {
		delete(s.Subscriptions, id)
	}
	return true
}

// RemoveConnection forgets every subscription of a connection and returns them
func (s *SocketServer) RemoveConnection(id socket.SocketId) []string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	codes := make([]string, 0, len(s.Subscriptions[id]))
	for code := range s.Subscriptions[id] {
		codes = append(codes, code)
	}
	delete(s.Subscriptions, id)
	return codes
}

func (s *SocketServer) IsSubscribed(id socket.SocketId, roomCode string) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, ok := s.Subscriptions[id][roomCode]
	return ok
}

// Notify broadcasts a room event. Delivery is best effort.
func (s *SocketServer) Notify(ctx context.Context, roomCode string, event string, payload interface{}) {
	if s.Sio_server == nil {
		return
	}
	s.Sio_server.To(socket.Room(roomCode)).Emit(event, payload)
	logrus.WithFields(logrus.Fields{"room_code": roomCode, "event": event}).Debug("Room event emitted")
}

// Close shuts the socket.io server down
func (s *SocketServer) Close() {
	if s.Sio_server != nil {
		s.Sio_server.Close(nil)
	}
}
