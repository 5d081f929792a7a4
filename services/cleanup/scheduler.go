package cleanup

import (
	game_constants "Conspiracy/constants/game"
	"Conspiracy/services/rooms"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Config holds the thresholds of the scheduler
type Config struct {
	MaxRooms            int
	LobbyIdleTimeout    time.Duration
	FinishedRoomTimeout time.Duration
	SweepInterval       time.Duration
	// DeleteTimeout bounds the store calls made by a firing timer
	DeleteTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRooms:            game_constants.MAX_ROOMS,
		LobbyIdleTimeout:    game_constants.LOBBY_IDLE_TIMEOUT,
		FinishedRoomTimeout: game_constants.FINISHED_ROOM_TIMEOUT,
		SweepInterval:       game_constants.CLEANUP_INTERVAL,
		DeleteTimeout:       30 * time.Second,
	}
}

// Timer is the handle of an armed timer
type Timer interface {
	Stop() bool
}

// AfterFunc arms a single-shot timer running f after d
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler guarantees every room is eventually deleted. Precise per-room
// timers are backed by a coarse periodic sweep, which also catches the rooms
// whose timers were lost on restart.
type Scheduler struct {
	repo      rooms.Repository
	config    Config
	afterFunc AfterFunc
	now       func() time.Time
	log       *logrus.Entry

	mutex      sync.Mutex
	timers     map[string]*pendingCleanup
	generation uint64

	stop chan struct{}
	done chan struct{}
}

type pendingCleanup struct {
	timer      Timer
	generation uint64
	delay      time.Duration
}

type Option func(*Scheduler)

func WithAfterFunc(afterFunc AfterFunc) Option {
	return func(s *Scheduler) { s.afterFunc = afterFunc }
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func NewScheduler(repo rooms.Repository, config Config, opts ...Option) *Scheduler {
	if repo == nil {
		panic("cleanup: repository cannot be nil")
	}
	if config.DeleteTimeout <= 0 {
		config.DeleteTimeout = 30 * time.Second
	}
	s := &Scheduler{
		repo:      repo,
		config:    config,
		afterFunc: realAfterFunc,
		now:       time.Now,
		log:       logrus.WithField("component", "cleanup_scheduler"),
		timers:    make(map[string]*pendingCleanup),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleCleanup (re)arms the single cleanup timer of a room
func (s *Scheduler) ScheduleCleanup(roomID string, delay time.Duration) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if pending, ok := s.timers[roomID]; ok {
		pending.timer.Stop()
	}
	s.generation++
	generation := s.generation
	timer := s.afterFunc(delay, func() { s.fire(roomID, generation) })
	s.timers[roomID] = &pendingCleanup{timer: timer, generation: generation, delay: delay}

	s.log.WithFields(logrus.Fields{"room_id": roomID, "delay": delay}).Debug("Scheduled room cleanup")
}

// CancelCleanup drops the pending timer of a room, if any
func (s *Scheduler) CancelCleanup(roomID string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if pending, ok := s.timers[roomID]; ok {
		pending.timer.Stop()
		delete(s.timers, roomID)
		s.log.WithField("room_id", roomID).Debug("Cancelled room cleanup")
	}
}

// PendingDelay returns the delay the room's timer was armed with
func (s *Scheduler) PendingDelay(roomID string) (time.Duration, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	pending, ok := s.timers[roomID]
	if !ok {
		return 0, false
	}
	return pending.delay, true
}

// ScheduledCleanups is the number of armed timers
func (s *Scheduler) ScheduledCleanups() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.timers)
}

func (s *Scheduler) fire(roomID string, generation uint64) {
	s.mutex.Lock()
	pending, ok := s.timers[roomID]
	if !ok || pending.generation != generation {
		// Re-armed or cancelled after this timer had already fired
		s.mutex.Unlock()
		return
	}
	delete(s.timers, roomID)
	s.mutex.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.config.DeleteTimeout)
	defer cancel()
	if err := s.DeleteRoomData(ctx, roomID); err != nil {
		s.log.WithField("room_id", roomID).WithError(err).Error("Scheduled cleanup failed, leaving it to the next sweep")
	}
}

// DeleteRoomData removes the memberships of a room, then the room, then every
// player left without any room. Deleting a room that is already gone is a no-op.
func (s *Scheduler) DeleteRoomData(ctx context.Context, roomID string) error {
	logCtx := s.log.WithField("room_id", roomID)

	room, err := s.repo.FindByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, rooms.ErrNotFound) {
			logCtx.Debug("Room already deleted")
			return nil
		}
		return fmt.Errorf("%w: find room %s: %w", rooms.ErrUnavailable, roomID, err)
	}
	logCtx = logCtx.WithField("room_code", room.Code)
	playerIDs := room.PlayerIDs()

	if err := s.repo.ClearMembers(ctx, roomID); err != nil {
		return fmt.Errorf("%w: clear members of room %s: %w", rooms.ErrUnavailable, roomID, err)
	}
	if err := s.repo.DeleteByID(ctx, roomID); err != nil {
		return fmt.Errorf("%w: delete room %s: %w", rooms.ErrUnavailable, roomID, err)
	}

	orphans := 0
	for _, playerID := range playerIDs {
		memberships, err := s.repo.CountMembershipsForPlayer(ctx, playerID)
		if err != nil {
			return fmt.Errorf("%w: count memberships of player %s: %w", rooms.ErrUnavailable, playerID, err)
		}
		if memberships > 0 {
			continue
		}
		if err := s.repo.DeletePlayer(ctx, playerID); err != nil {
			return fmt.Errorf("%w: delete player %s: %w", rooms.ErrUnavailable, playerID, err)
		}
		orphans++
	}

	logCtx.WithFields(logrus.Fields{"players": len(playerIDs), "orphans_deleted": orphans}).Info("Room cleaned up")
	return nil
}

// Purge cancels the room's timer and deletes it right away
func (s *Scheduler) Purge(ctx context.Context, roomID string) error {
	s.CancelCleanup(roomID)
	return s.DeleteRoomData(ctx, roomID)
}

// Start runs the periodic sweep until ctx is done or Shutdown is called
func (s *Scheduler) Start(ctx context.Context) {
	s.mutex.Lock()
	if s.stop != nil {
		s.mutex.Unlock()
		return
	}
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mutex.Unlock()

	interval := s.config.SweepInterval
	if interval <= 0 {
		interval = game_constants.CLEANUP_INTERVAL
	}

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.log.WithField("interval", interval).Info("Started periodic cleanup")
		for {
			select {
			case <-ticker.C:
				if _, err := s.PerformPeriodicSweep(ctx); err != nil {
					s.log.WithError(err).Error("Periodic cleanup failed")
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Shutdown stops the sweep loop, drops every pending timer and runs a final
// sweep so that the cleanups about to fire are not lost.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mutex.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	for roomID, pending := range s.timers {
		pending.timer.Stop()
		delete(s.timers, roomID)
	}
	s.mutex.Unlock()

	if stop != nil {
		close(stop)
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	report, err := s.PerformPeriodicSweep(ctx)
	if err != nil {
		return err
	}
	s.log.WithField("removed", report.Total()).Info("Cleanup scheduler shut down")
	return nil
}
