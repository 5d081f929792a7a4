package rooms

import (
	"Conspiracy/models"
	"context"
	"time"
)

// Repository is the durable store for rooms, players and memberships.
//
// FindByCode and FindByID return the members ordered by join time, the list
// operations may leave Players empty. Missing records are reported with
// ErrNotFound and a code collision on Create with ErrConflict. DeleteByID and
// DeletePlayer succeed when the record is already gone.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	Create(ctx context.Context, room *models.Room) error
	// Save persists HostID, Settings and State and bumps UpdatedAt
	Save(ctx context.Context, room *models.Room) error
	DeleteByID(ctx context.Context, id string) error

	Count(ctx context.Context) (int64, error)
	CountByState(ctx context.Context, state models.RoomState) (int64, error)
	// FindOldest returns up to limit rooms in state, least recently updated first
	FindOldest(ctx context.Context, state models.RoomState, limit int) ([]models.Room, error)
	// FindStale returns the rooms in state not updated since before
	FindStale(ctx context.Context, state models.RoomState, before time.Time) ([]models.Room, error)

	// AddMember seats the player (creating its record if needed) and bumps the room's UpdatedAt
	AddMember(ctx context.Context, roomID string, player *models.Player) error
	// RemoveMember unseats the player and bumps the room's UpdatedAt
	RemoveMember(ctx context.Context, roomID string, playerID string) error
	ClearMembers(ctx context.Context, roomID string) error
	CountMembershipsForPlayer(ctx context.Context, playerID string) (int64, error)
	DeletePlayer(ctx context.Context, playerID string) error
	// DeleteOrphanPlayers removes every player without a membership and
	// returns how many were removed
	DeleteOrphanPlayers(ctx context.Context) (int64, error)
}

// Notifier announces room changes to the subscribers of a room code. Delivery
// is best effort.
type Notifier interface {
	Notify(ctx context.Context, roomCode string, event string, payload interface{})
}

// Scheduler owns the per-room cleanup timers
type Scheduler interface {
	ScheduleCleanup(roomID string, delay time.Duration)
	CancelCleanup(roomID string)
}
