package cleanup

import (
	"Conspiracy/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// SweepReport counts the rooms, and the orphan players, removed by a sweep
type SweepReport struct {
	Finished int   `json:"finished"`
	Idle     int   `json:"idle"`
	Evicted  int   `json:"evicted"`
	Orphans  int64 `json:"orphans"`
}

// Total is the number of rooms removed
func (r SweepReport) Total() int {
	return r.Finished + r.Idle + r.Evicted
}

// Stats is the aggregate view exposed to operators
type Stats struct {
	TotalRooms        int64                      `json:"totalRooms"`
	RoomsByState      map[models.RoomState]int64 `json:"roomsByState"`
	ScheduledCleanups int                        `json:"scheduledCleanups"`
	MaxRooms          int                        `json:"maxRooms"`
}

// PerformPeriodicSweep deletes the finished rooms and idle lobbies that went
// stale, enforces the room ceiling and finally drops the players left without
// a room. Failing to delete one room does not stop the others; the returned
// error only reports failed listings.
func (s *Scheduler) PerformPeriodicSweep(ctx context.Context) (SweepReport, error) {
	var report SweepReport
	var errs []error
	now := s.now()

	finished, err := s.deleteStale(ctx, models.RoomStateFinished, now.Add(-s.config.FinishedRoomTimeout))
	report.Finished = finished
	if err != nil {
		errs = append(errs, err)
	}

	idle, err := s.deleteStale(ctx, models.RoomStateLobby, now.Add(-s.config.LobbyIdleTimeout))
	report.Idle = idle
	if err != nil {
		errs = append(errs, err)
	}

	evicted, err := s.EnforceCapacity(ctx)
	report.Evicted = evicted
	if err != nil {
		errs = append(errs, err)
	}

	orphans, err := s.repo.DeleteOrphanPlayers(ctx)
	report.Orphans = orphans
	if err != nil {
		errs = append(errs, fmt.Errorf("delete orphan players: %w", err))
	}

	s.log.WithFields(logrus.Fields{
		"finished": report.Finished,
		"idle":     report.Idle,
		"evicted":  report.Evicted,
		"orphans":  report.Orphans,
	}).Info("Periodic cleanup completed")
	return report, errors.Join(errs...)
}

func (s *Scheduler) deleteStale(ctx context.Context, state models.RoomState, before time.Time) (int, error) {
	stale, err := s.repo.FindStale(ctx, state, before)
	if err != nil {
		return 0, fmt.Errorf("list stale %s rooms: %w", state, err)
	}
	return s.deleteAll(ctx, stale), nil
}

// EnforceCapacity evicts rooms while the total exceeds MaxRooms: the oldest
// FINISHED rooms first, then the oldest LOBBY rooms. IN_GAME rooms are never
// evicted. It returns how many rooms were deleted.
func (s *Scheduler) EnforceCapacity(ctx context.Context) (int, error) {
	if s.config.MaxRooms <= 0 {
		return 0, nil
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	excess := int(total) - s.config.MaxRooms
	if excess <= 0 {
		return 0, nil
	}

	deleted := 0
	for _, state := range []models.RoomState{models.RoomStateFinished, models.RoomStateLobby} {
		remaining := excess - deleted
		if remaining <= 0 {
			break
		}
		oldest, err := s.repo.FindOldest(ctx, state, remaining)
		if err != nil {
			return deleted, fmt.Errorf("list oldest %s rooms: %w", state, err)
		}
		deleted += s.deleteAll(ctx, oldest)
	}

	s.log.WithFields(logrus.Fields{"excess": excess, "deleted": deleted}).Info("Enforced room limit")
	return deleted, nil
}

func (s *Scheduler) deleteAll(ctx context.Context, candidates []models.Room) int {
	deleted := 0
	for _, room := range candidates {
		if err := s.Purge(ctx, room.ID); err != nil {
			s.log.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code}).
				WithError(err).Error("Failed to clean up room")
			continue
		}
		deleted++
	}
	return deleted
}

// Stats gathers the room counts concurrently
func (s *Scheduler) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		RoomsByState:      make(map[models.RoomState]int64, len(models.RoomStates)),
		ScheduledCleanups: s.ScheduledCleanups(),
		MaxRooms:          s.config.MaxRooms,
	}
	var mutex sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := s.repo.Count(gctx)
		if err != nil {
			return fmt.Errorf("count rooms: %w", err)
		}
		stats.TotalRooms = total
		return nil
	})
	for _, state := range models.RoomStates {
		state := state
		g.Go(func() error {
			count, err := s.repo.CountByState(gctx, state)
			if err != nil {
				return fmt.Errorf("count %s rooms: %w", state, err)
			}
			mutex.Lock()
			stats.RoomsByState[state] = count
			mutex.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
