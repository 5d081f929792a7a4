package postgres

import (
	"Conspiracy/models"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

/*
 * 'Room' is the row of a game room. Settings are stored as jsonb, and the
 * (state, updated_at) index backs the cleanup sweep and the eviction order.
 */
type Room struct {
	ID        string         `gorm:"primaryKey;size:36;not null"`
	Code      string         `gorm:"size:8;not null;uniqueIndex:idx_rooms_code"`
	HostID    string         `gorm:"size:36"`
	Settings  datatypes.JSON `gorm:"type:jsonb;not null"`
	State     string         `gorm:"size:16;not null;index:idx_rooms_state_updated,priority:1"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index:idx_rooms_state_updated,priority:2"`

	// Relationship with the seated players
	RoomPlayers []RoomPlayer `gorm:"foreignKey:RoomID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func NewRoom(room *models.Room) (*Room, error) {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return nil, err
	}
	return &Room{
		ID:        room.ID,
		Code:      room.Code,
		HostID:    room.HostID,
		Settings:  datatypes.JSON(settings),
		State:     string(room.State),
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}, nil
}

// ToModel converts the row, and its preloaded players if any, to the domain room
func (r *Room) ToModel() (*models.Room, error) {
	room := &models.Room{
		ID:        r.ID,
		Code:      r.Code,
		HostID:    r.HostID,
		State:     models.RoomState(r.State),
		Players:   make([]models.Player, 0, len(r.RoomPlayers)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Settings) > 0 {
		if err := json.Unmarshal(r.Settings, &room.Settings); err != nil {
			return nil, err
		}
	}
	for _, rp := range r.RoomPlayers {
		room.Players = append(room.Players, models.Player{
			ID:       rp.PlayerID,
			Name:     rp.Player.Name,
			JoinedAt: rp.JoinedAt,
		})
	}
	return room, nil
}
