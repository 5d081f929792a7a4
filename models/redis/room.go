package redis

import (
	"Conspiracy/models"
	"time"
)

// RoomMember is a player embedded in the room document, in join order
type RoomMember struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joined_at"`
}

// Room is the document stored under "room:{id}"
type Room struct {
	ID        string          `json:"id"`
	Code      string          `json:"code"`
	HostID    string          `json:"host_id"`
	Settings  models.Settings `json:"settings"`
	State     string          `json:"state"`
	Players   []RoomMember    `json:"players"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PlayerRecord is the document stored under "player:{id}"
type PlayerRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRoom(room *models.Room) *Room {
	doc := &Room{
		ID:        room.ID,
		Code:      room.Code,
		HostID:    room.HostID,
		Settings:  room.Settings,
		State:     string(room.State),
		Players:   make([]RoomMember, 0, len(room.Players)),
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
	}
	for _, p := range room.Players {
		doc.Players = append(doc.Players, RoomMember{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt})
	}
	return doc
}

func (r *Room) ToModel() *models.Room {
	room := &models.Room{
		ID:        r.ID,
		Code:      r.Code,
		HostID:    r.HostID,
		Settings:  r.Settings,
		State:     models.RoomState(r.State),
		Players:   make([]models.Player, 0, len(r.Players)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, p := range r.Players {
		room.Players = append(room.Players, models.Player{ID: p.ID, Name: p.Name, JoinedAt: p.JoinedAt})
	}
	return room
}

// IndexOf returns the position of the member, or -1
func (r *Room) IndexOf(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
