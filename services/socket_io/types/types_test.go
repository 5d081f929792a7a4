package socketio_types

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zishang520/socket.io/v2/socket"
)

func TestSubscriptions(t *testing.T) {
	s := &SocketServer{Subscriptions: make(map[socket.SocketId]map[string]struct{})}
	a := socket.SocketId("a")

	s.AddSubscription(a, "ABC123")
	s.AddSubscription(a, "XYZ789")
	assert.True(t, s.IsSubscribed(a, "ABC123"))
	assert.False(t, s.IsSubscribed(socket.SocketId("b"), "ABC123"))

	assert.True(t, s.RemoveSubscription(a, "ABC123"))
	assert.False(t, s.RemoveSubscription(a, "ABC123"))
	assert.False(t, s.IsSubscribed(a, "ABC123"))

	s.AddSubscription(a, "QQQ111")
	codes := s.RemoveConnection(a)
	sort.Strings(codes)
	assert.Equal(t, []string{"QQQ111", "XYZ789"}, codes)
	assert.Empty(t, s.Subscriptions)
	assert.Empty(t, s.RemoveConnection(a))
}

func TestNotify_WithoutServerIsNoop(t *testing.T) {
	s := &SocketServer{}
	assert.NotPanics(t, func() {
		s.Notify(context.Background(), "ABC123", "room:joined", map[string]interface{}{})
	})
}
