package cleanup_test

import (
	"Conspiracy/models"
	"Conspiracy/services/cleanup"
	room_redis "Conspiracy/services/redis"
	"Conspiracy/services/rooms"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// fakeTimers records every armed timer so tests fire them by hand
type fakeTimers struct {
	mutex sync.Mutex
	armed []*fakeTimer
}

func (f *fakeTimers) AfterFunc(d time.Duration, fn func()) cleanup.Timer {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	t := &fakeTimer{delay: d, fn: fn}
	f.armed = append(f.armed, t)
	return t
}

func (f *fakeTimers) last() *fakeTimer {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.armed[len(f.armed)-1]
}

type fixture struct {
	mr        *miniredis.Miniredis
	repo      *room_redis.RoomRepository
	timers    *fakeTimers
	scheduler *cleanup.Scheduler
	now       time.Time
}

func newFixture(t *testing.T, config cleanup.Config) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &fixture{
		mr:     mr,
		repo:   room_redis.NewRoomRepository(client),
		timers: &fakeTimers{},
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.scheduler = cleanup.NewScheduler(f.repo, config,
		cleanup.WithAfterFunc(f.timers.AfterFunc),
		cleanup.WithClock(func() time.Time { return f.now }),
	)
	return f
}

func (f *fixture) room(t *testing.T, id string, state models.RoomState, age time.Duration, players ...string) {
	t.Helper()
	ctx := context.Background()
	at := f.now.Add(-age)
	require.NoError(t, f.repo.Create(ctx, &models.Room{
		ID:        id,
		Code:      "CODE-" + id,
		State:     state,
		Settings:  models.Settings{MaxPlayers: 6, RoundTime: 90, Rounds: 3},
		CreatedAt: at,
		UpdatedAt: at,
	}))
	for _, p := range players {
		require.NoError(t, f.repo.AddMember(ctx, id, &models.Player{ID: p, Name: p, JoinedAt: at}))
	}
}

func (f *fixture) exists(t *testing.T, id string) bool {
	t.Helper()
	_, err := f.repo.FindByID(context.Background(), id)
	if errors.Is(err, rooms.ErrNotFound) {
		return false
	}
	require.NoError(t, err)
	return true
}

func TestScheduleCleanup_ReplacesPendingTimer(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())

	f.scheduler.ScheduleCleanup("r1", 30*time.Minute)
	first := f.timers.last()
	f.scheduler.ScheduleCleanup("r1", 2*time.Minute)

	assert.True(t, first.stopped)
	assert.Equal(t, 1, f.scheduler.ScheduledCleanups())
	delay, ok := f.scheduler.PendingDelay("r1")
	require.True(t, ok)
	assert.Equal(t, 2*time.Minute, delay)

	f.scheduler.CancelCleanup("r1")
	assert.True(t, f.timers.last().stopped)
	assert.Zero(t, f.scheduler.ScheduledCleanups())

	// cancelling twice is harmless
	f.scheduler.CancelCleanup("r1")
}

func TestTimerFire_DeletesRoomAndOrphans(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	ctx := context.Background()
	f.room(t, "r1", models.RoomStateFinished, 0, "alice", "bob")
	f.room(t, "r2", models.RoomStateLobby, 0, "bob")

	f.scheduler.ScheduleCleanup("r1", 2*time.Minute)
	f.timers.last().fn()

	assert.False(t, f.exists(t, "r1"))
	assert.True(t, f.exists(t, "r2"))
	assert.Zero(t, f.scheduler.ScheduledCleanups())

	aliceRooms, err := f.repo.CountMembershipsForPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, aliceRooms)
	bobRooms, err := f.repo.CountMembershipsForPlayer(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bobRooms)
}

func TestTimerFire_StaleTimerIsIgnored(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	f.room(t, "r1", models.RoomStateLobby, 0, "alice")

	f.scheduler.ScheduleCleanup("r1", 2*time.Minute)
	stale := f.timers.last()
	f.scheduler.ScheduleCleanup("r1", 30*time.Minute)

	// the old callback raced past Stop
	stale.fn()
	assert.True(t, f.exists(t, "r1"))
	assert.Equal(t, 1, f.scheduler.ScheduledCleanups())

	f.scheduler.CancelCleanup("r1")
	f.timers.last().fn()
	assert.True(t, f.exists(t, "r1"))
}

func TestDeleteRoomData_Idempotent(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	ctx := context.Background()
	f.room(t, "r1", models.RoomStateFinished, 0, "alice")

	require.NoError(t, f.scheduler.DeleteRoomData(ctx, "r1"))
	require.NoError(t, f.scheduler.DeleteRoomData(ctx, "r1"))

	assert.False(t, f.exists(t, "r1"))
	memberships, err := f.repo.CountMembershipsForPlayer(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, memberships)
	total, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)
}

type silentNotifier struct{}

func (silentNotifier) Notify(ctx context.Context, roomCode string, event string, payload interface{}) {}

func TestDeleteRoomData_LeavesNoPlayerBehind(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	ctx := context.Background()
	registry := rooms.NewRegistry(f.repo, f.scheduler, silentNotifier{}, rooms.DefaultPolicy())

	room, _, err := registry.CreateRoom(ctx, "host")
	require.NoError(t, err)
	_, guest, err := registry.JoinRoom(ctx, room.Code, "guest")
	require.NoError(t, err)
	_, err = registry.LeaveRoom(ctx, room.Code, guest.ID)
	require.NoError(t, err)

	require.NoError(t, f.scheduler.DeleteRoomData(ctx, room.ID))
	assert.Empty(t, f.mr.Keys())
}

// failingRepo fails ClearMembers for a single room
type failingRepo struct {
	rooms.Repository
	roomID string
}

func (r *failingRepo) ClearMembers(ctx context.Context, roomID string) error {
	if roomID == r.roomID {
		return errors.New("connection reset by peer")
	}
	return r.Repository.ClearMembers(ctx, roomID)
}

func TestPerformPeriodicSweep_FailureDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	f.room(t, "f1", models.RoomStateFinished, 10*time.Minute, "a")
	f.room(t, "f2", models.RoomStateFinished, 9*time.Minute, "b")
	f.room(t, "f3", models.RoomStateFinished, 8*time.Minute, "c")

	scheduler := cleanup.NewScheduler(&failingRepo{Repository: f.repo, roomID: "f2"}, cleanup.DefaultConfig(),
		cleanup.WithAfterFunc(f.timers.AfterFunc),
		cleanup.WithClock(func() time.Time { return f.now }),
	)

	report, err := scheduler.PerformPeriodicSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Finished)
	assert.False(t, f.exists(t, "f1"))
	assert.True(t, f.exists(t, "f2"))
	assert.False(t, f.exists(t, "f3"))
}

func TestPerformPeriodicSweep_DeletesOrphanPlayers(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	ctx := context.Background()
	f.room(t, "r1", models.RoomStateLobby, 0, "alice", "bob")
	require.NoError(t, f.repo.RemoveMember(ctx, "r1", "alice"))

	report, err := f.scheduler.PerformPeriodicSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, cleanup.SweepReport{Orphans: 1}, report)
	assert.False(t, f.mr.Exists("player:alice"))
	assert.True(t, f.mr.Exists("player:bob"))
	assert.True(t, f.exists(t, "r1"))
}

func TestPurge_CancelsTimer(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	f.room(t, "r1", models.RoomStateLobby, 0, "alice")
	f.scheduler.ScheduleCleanup("r1", time.Hour)

	require.NoError(t, f.scheduler.Purge(context.Background(), "r1"))
	assert.False(t, f.exists(t, "r1"))
	assert.Zero(t, f.scheduler.ScheduledCleanups())
	assert.True(t, f.timers.last().stopped)
}

func TestPerformPeriodicSweep(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	f.room(t, "fin-old", models.RoomStateFinished, 10*time.Minute, "a")
	f.room(t, "fin-new", models.RoomStateFinished, time.Minute, "b")
	f.room(t, "lobby-idle", models.RoomStateLobby, 45*time.Minute, "c")
	f.room(t, "lobby-live", models.RoomStateLobby, 5*time.Minute, "d")
	f.room(t, "game-long", models.RoomStateInGame, 3*time.Hour, "e")

	report, err := f.scheduler.PerformPeriodicSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cleanup.SweepReport{Finished: 1, Idle: 1, Evicted: 0}, report)

	assert.False(t, f.exists(t, "fin-old"))
	assert.False(t, f.exists(t, "lobby-idle"))
	assert.True(t, f.exists(t, "fin-new"))
	assert.True(t, f.exists(t, "lobby-live"))
	assert.True(t, f.exists(t, "game-long"))
}

func TestEnforceCapacity_EvictsOldestFinishedFirst(t *testing.T) {
	config := cleanup.DefaultConfig()
	f := newFixture(t, config)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		f.room(t, fmt.Sprintf("f%d", i), models.RoomStateFinished, time.Duration(5-i)*time.Second)
	}
	for i := 0; i < 96; i++ {
		f.room(t, fmt.Sprintf("l%d", i), models.RoomStateLobby, time.Duration(100+i)*time.Second)
	}

	deleted, err := f.scheduler.EnforceCapacity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	assert.False(t, f.exists(t, "f0"))
	for i := 1; i < 5; i++ {
		assert.True(t, f.exists(t, fmt.Sprintf("f%d", i)))
	}
	lobbies, err := f.repo.CountByState(ctx, models.RoomStateLobby)
	require.NoError(t, err)
	assert.Equal(t, int64(96), lobbies)
	total, err := f.repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(config.MaxRooms), total)
}

func TestEnforceCapacity_NeverEvictsGames(t *testing.T) {
	config := cleanup.DefaultConfig()
	config.MaxRooms = 2
	f := newFixture(t, config)
	ctx := context.Background()

	f.room(t, "g1", models.RoomStateInGame, time.Hour)
	f.room(t, "g2", models.RoomStateInGame, time.Hour)
	f.room(t, "l1", models.RoomStateLobby, time.Minute)
	f.room(t, "g3", models.RoomStateInGame, time.Hour)

	deleted, err := f.scheduler.EnforceCapacity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.False(t, f.exists(t, "l1"))
	for _, id := range []string{"g1", "g2", "g3"} {
		assert.True(t, f.exists(t, id))
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t, cleanup.DefaultConfig())
	f.room(t, "l1", models.RoomStateLobby, 0)
	f.room(t, "l2", models.RoomStateLobby, 0)
	f.room(t, "g1", models.RoomStateInGame, 0)
	f.scheduler.ScheduleCleanup("l1", time.Minute)

	stats, err := f.scheduler.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalRooms)
	assert.Equal(t, int64(2), stats.RoomsByState[models.RoomStateLobby])
	assert.Equal(t, int64(1), stats.RoomsByState[models.RoomStateInGame])
	assert.Equal(t, int64(0), stats.RoomsByState[models.RoomStateFinished])
	assert.Equal(t, 1, stats.ScheduledCleanups)
	assert.Equal(t, 100, stats.MaxRooms)
}

func TestShutdown_StopsTimersAndSweeps(t *testing.T) {
	config := cleanup.DefaultConfig()
	config.SweepInterval = time.Hour
	f := newFixture(t, config)
	f.room(t, "fin-old", models.RoomStateFinished, 10*time.Minute)
	f.room(t, "lobby", models.RoomStateLobby, 0)
	f.scheduler.ScheduleCleanup("lobby", 30*time.Minute)

	f.scheduler.Start(context.Background())
	require.NoError(t, f.scheduler.Shutdown(context.Background()))

	assert.Zero(t, f.scheduler.ScheduledCleanups())
	assert.True(t, f.timers.last().stopped)
	assert.False(t, f.exists(t, "fin-old"))
	assert.True(t, f.exists(t, "lobby"))

	// a second shutdown only sweeps again
	require.NoError(t, f.scheduler.Shutdown(context.Background()))
}
