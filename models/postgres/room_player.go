package postgres

import (
	"time"
)

/*
 * 'RoomPlayer' is the membership of a player in a room. The autoincrement ID
 * gives the join order.
 */
type RoomPlayer struct {
	ID       uint      `gorm:"primaryKey;autoIncrement"`
	RoomID   string    `gorm:"size:36;not null;uniqueIndex:idx_room_players_member,priority:1"`
	PlayerID string    `gorm:"size:36;not null;uniqueIndex:idx_room_players_member,priority:2;index"`
	JoinedAt time.Time `gorm:"not null"`

	Player Player `gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE"`
}
