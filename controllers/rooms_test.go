package controllers_test

import (
	"Conspiracy/controllers"
	"Conspiracy/middleware"
	"Conspiracy/models"
	"Conspiracy/routes"
	"Conspiracy/services/cleanup"
	"Conspiracy/services/rooms"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const adminSecret = "admin-secret"

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) CreateRoom(ctx context.Context, playerName string) (*models.Room, *models.Player, error) {
	args := m.Called(playerName)
	room, _ := args.Get(0).(*models.Room)
	player, _ := args.Get(1).(*models.Player)
	return room, player, args.Error(2)
}

func (m *mockRegistry) JoinRoom(ctx context.Context, code string, playerName string) (*models.Room, *models.Player, error) {
	args := m.Called(code, playerName)
	room, _ := args.Get(0).(*models.Room)
	player, _ := args.Get(1).(*models.Player)
	return room, player, args.Error(2)
}

func (m *mockRegistry) LeaveRoom(ctx context.Context, code string, playerID string) (*models.Room, error) {
	args := m.Called(code, playerID)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockRegistry) UpdateSettings(ctx context.Context, code string, playerID string, patch models.SettingsPatch) (*models.Room, error) {
	args := m.Called(code, playerID, patch)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockRegistry) StartGame(ctx context.Context, code string, playerID string) (*models.Room, error) {
	args := m.Called(code, playerID)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockRegistry) EndGame(ctx context.Context, code string, playerID string) (*models.Room, error) {
	args := m.Called(code, playerID)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

func (m *mockRegistry) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	args := m.Called(code)
	room, _ := args.Get(0).(*models.Room)
	return room, args.Error(1)
}

type mockJanitor struct {
	mock.Mock
}

func (m *mockJanitor) Stats(ctx context.Context) (*cleanup.Stats, error) {
	args := m.Called()
	stats, _ := args.Get(0).(*cleanup.Stats)
	return stats, args.Error(1)
}

func (m *mockJanitor) PerformPeriodicSweep(ctx context.Context) (cleanup.SweepReport, error) {
	args := m.Called()
	return args.Get(0).(cleanup.SweepReport), args.Error(1)
}

func (m *mockJanitor) Purge(ctx context.Context, roomID string) error {
	return m.Called(roomID).Error(0)
}

func setupRouter() (*gin.Engine, *mockRegistry, *mockJanitor) {
	gin.SetMode(gin.TestMode)
	registry := &mockRegistry{}
	janitor := &mockJanitor{}
	router := gin.New()
	middleware.SetUpMiddleware(router, "session-key", false, nil)
	routes.SetupRoutes(router, registry, janitor, adminSecret)
	return router, registry, janitor
}

func doRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleRoom() *models.Room {
	return &models.Room{
		ID:       "room-1",
		Code:     "ABC123",
		HostID:   "p1",
		Settings: models.Settings{MaxPlayers: 6, RoundTime: 90, Rounds: 3},
		State:    models.RoomStateLobby,
		Players:  []models.Player{{ID: "p1", Name: "Alice"}, {ID: "p2", Name: "Bob"}},
	}
}

func TestPing(t *testing.T) {
	router, _, _ := setupRouter()
	w := doRequest(router, http.MethodGet, "/ping", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode(t, w)["message"])
}

func TestCreateRoom(t *testing.T) {
	router, registry, _ := setupRouter()
	room := sampleRoom()
	room.Players = room.Players[:1]
	registry.On("CreateRoom", "Alice").Return(room, &models.Player{ID: "p1", Name: "Alice"}, nil)

	w := doRequest(router, http.MethodPost, "/rooms", gin.H{"playerName": "Alice"}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ABC123", body["roomCode"])
	assert.Equal(t, "room-1", body["roomId"])
	assert.Equal(t, "p1", body["hostId"])
	assert.Equal(t, "LOBBY", body["state"])
	assert.Equal(t, map[string]interface{}{"id": "p1", "name": "Alice", "isHost": true}, body["player"])
	assert.NotEmpty(t, w.Header().Get("Set-Cookie"))
}

func TestCreateRoom_Validation(t *testing.T) {
	router, registry, _ := setupRouter()

	for _, body := range []interface{}{
		gin.H{},
		gin.H{"playerName": ""},
		gin.H{"playerName": fmt.Sprintf("%051d", 0)},
	} {
		w := doRequest(router, http.MethodPost, "/rooms", body, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %v", body)
	}
	registry.AssertNotCalled(t, "CreateRoom", mock.Anything)
}

func TestCreateRoom_Unavailable(t *testing.T) {
	router, registry, _ := setupRouter()
	registry.On("CreateRoom", "Alice").Return(nil, nil, fmt.Errorf("%w: no free room code", rooms.ErrUnavailable))

	w := doRequest(router, http.MethodPost, "/rooms", gin.H{"playerName": "Alice"}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestJoinRoom(t *testing.T) {
	router, registry, _ := setupRouter()
	registry.On("JoinRoom", "ABC123", "Bob").Return(sampleRoom(), &models.Player{ID: "p2", Name: "Bob"}, nil)

	w := doRequest(router, http.MethodPost, "/rooms/ABC123/join", gin.H{"playerName": "Bob"}, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, map[string]interface{}{"id": "p2", "name": "Bob"}, body["player"])
	assert.Len(t, body["players"], 2)
}

func TestJoinRoom_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing room", fmt.Errorf("%w: room ABC123", rooms.ErrNotFound), http.StatusNotFound},
		{"full room", fmt.Errorf("%w: room is full", rooms.ErrPreconditionFailed), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, registry, _ := setupRouter()
			registry.On("JoinRoom", "ABC123", "Bob").Return(nil, nil, tt.err)

			w := doRequest(router, http.MethodPost, "/rooms/ABC123/join", gin.H{"playerName": "Bob"}, nil)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.err.Error(), decode(t, w)["error"])
		})
	}
}

func TestGetRoom(t *testing.T) {
	router, registry, _ := setupRouter()
	registry.On("GetRoom", "ABC123").Return(sampleRoom(), nil)
	registry.On("GetRoom", "NOPE00").Return(nil, fmt.Errorf("%w: room NOPE00", rooms.ErrNotFound))

	w := doRequest(router, http.MethodGet, "/rooms/ABC123", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"id": "p1", "name": "Alice", "isHost": true},
		map[string]interface{}{"id": "p2", "name": "Bob"},
	}, body["players"])

	w = doRequest(router, http.MethodGet, "/rooms/NOPE00", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLeaveRoom_UsesSessionPlayer(t *testing.T) {
	router, registry, _ := setupRouter()
	room := sampleRoom()
	room.Players = room.Players[:1]
	registry.On("CreateRoom", "Alice").Return(room, &models.Player{ID: "p1", Name: "Alice"}, nil)
	registry.On("LeaveRoom", "ABC123", "p1").Return(&models.Room{ID: "room-1", Code: "ABC123", State: models.RoomStateFinished}, nil)

	created := doRequest(router, http.MethodPost, "/rooms", gin.H{"playerName": "Alice"}, nil)
	require.Equal(t, http.StatusCreated, created.Code)
	cookie := strings.Split(created.Header().Get("Set-Cookie"), ";")[0]

	w := doRequest(router, http.MethodPost, "/rooms/ABC123/leave", nil, map[string]string{"Cookie": cookie})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FINISHED", decode(t, w)["state"])
	registry.AssertCalled(t, "LeaveRoom", "ABC123", "p1")
}

func TestLeaveRoom_RequiresPlayer(t *testing.T) {
	router, registry, _ := setupRouter()

	w := doRequest(router, http.MethodPost, "/rooms/ABC123/leave", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	registry.AssertNotCalled(t, "LeaveRoom", mock.Anything, mock.Anything)
}

func TestUpdateSettings(t *testing.T) {
	router, registry, _ := setupRouter()
	rounds := 5
	updated := sampleRoom()
	updated.Settings.Rounds = 5
	registry.On("UpdateSettings", "ABC123", "p1", models.SettingsPatch{Rounds: &rounds}).Return(updated, nil)
	registry.On("UpdateSettings", "ABC123", "p2", mock.Anything).Return(nil, fmt.Errorf("%w: only the host can update settings", rooms.ErrForbidden))

	w := doRequest(router, http.MethodPost, "/rooms/ABC123/settings", gin.H{"playerId": "p1", "settings": gin.H{"rounds": 5}}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(5), decode(t, w)["settings"].(map[string]interface{})["rounds"])

	w = doRequest(router, http.MethodPost, "/rooms/ABC123/settings", gin.H{"playerId": "p2", "settings": gin.H{"rounds": 5}}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, http.MethodPost, "/rooms/ABC123/settings", gin.H{"playerId": "p1", "settings": gin.H{"maxPlayers": 1}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartAndEndGame(t *testing.T) {
	router, registry, _ := setupRouter()
	started := sampleRoom()
	started.State = models.RoomStateInGame
	registry.On("StartGame", "ABC123", "p1").Return(started, nil)
	registry.On("StartGame", "ABC123", "p2").Return(nil, fmt.Errorf("%w: only the host can start the game", rooms.ErrForbidden))
	registry.On("EndGame", "ABC123", "p1").Return(nil, fmt.Errorf("%w: no game in progress", rooms.ErrPreconditionFailed))

	w := doRequest(router, http.MethodPost, "/rooms/ABC123/start", gin.H{"playerId": "p1"}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "IN_GAME", decode(t, w)["state"])

	w = doRequest(router, http.MethodPost, "/rooms/ABC123/start", gin.H{"playerId": "p2"}, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doRequest(router, http.MethodPost, "/rooms/ABC123/end", gin.H{"playerId": "p1"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func adminToken(t *testing.T) map[string]string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
		Role: middleware.AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(adminSecret))
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestAdminRoutes(t *testing.T) {
	router, registry, janitor := setupRouter()
	janitor.On("Stats").Return(&cleanup.Stats{
		TotalRooms:   3,
		RoomsByState: map[models.RoomState]int64{models.RoomStateLobby: 2, models.RoomStateInGame: 1},
		MaxRooms:     100,
	}, nil)
	janitor.On("PerformPeriodicSweep").Return(cleanup.SweepReport{Finished: 2, Idle: 1}, nil)
	janitor.On("Purge", "room-1").Return(nil)
	registry.On("GetRoom", "ABC123").Return(sampleRoom(), nil)

	w := doRequest(router, http.MethodGet, "/admin/stats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	headers := adminToken(t)
	w = doRequest(router, http.MethodGet, "/admin/stats", nil, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(3), body["totalRooms"])
	assert.Equal(t, float64(2), body["roomsByState"].(map[string]interface{})["LOBBY"])

	w = doRequest(router, http.MethodPost, "/admin/cleanup", nil, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]interface{}{"finished": float64(2), "idle": float64(1), "evicted": float64(0), "orphans": float64(0)}, decode(t, w))

	w = doRequest(router, http.MethodDelete, "/admin/rooms/ABC123", nil, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	janitor.AssertCalled(t, "Purge", "room-1")
}

func TestAdminRoutes_DisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	routes.SetupRoutes(router, &mockRegistry{}, &mockJanitor{}, "")

	w := doRequest(router, http.MethodGet, "/admin/stats", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

var _ controllers.RoomRegistry = (*rooms.Registry)(nil)
var _ controllers.RoomJanitor = (*cleanup.Scheduler)(nil)
