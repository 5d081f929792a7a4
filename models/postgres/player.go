package postgres

import (
	"time"
)

/*
 * 'Player' is a person seated in a room. A player without any RoomPlayer row
 * is an orphan and gets deleted by the cleanup scheduler.
 */
type Player struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	Name      string `gorm:"size:50;not null"`
	CreatedAt time.Time
}
