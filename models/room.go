package models

import "time"

// RoomState is the lifecycle state of a room
type RoomState string

const (
	RoomStateLobby    RoomState = "LOBBY"
	RoomStateInGame   RoomState = "IN_GAME"
	RoomStateFinished RoomState = "FINISHED"
)

// RoomStates lists every state a live room can be in
var RoomStates = []RoomState{RoomStateLobby, RoomStateInGame, RoomStateFinished}

// Settings holds the host-configurable options of a room. RoundTime is in seconds.
type Settings struct {
	MaxPlayers int `json:"maxPlayers"`
	RoundTime  int `json:"roundTime"`
	Rounds     int `json:"rounds"`
}

// SettingsPatch is a partial update of Settings: nil fields are left untouched
type SettingsPatch struct {
	MaxPlayers *int `json:"maxPlayers,omitempty" binding:"omitempty,min=2"`
	RoundTime  *int `json:"roundTime,omitempty" binding:"omitempty,gt=0"`
	Rounds     *int `json:"rounds,omitempty" binding:"omitempty,min=1"`
}

// Merge returns a copy of s with the fields present in p applied
func (s Settings) Merge(p SettingsPatch) Settings {
	if p.MaxPlayers != nil {
		s.MaxPlayers = *p.MaxPlayers
	}
	if p.RoundTime != nil {
		s.RoundTime = *p.RoundTime
	}
	if p.Rounds != nil {
		s.Rounds = *p.Rounds
	}
	return s
}

// GameDuration is the expected length of a game plus a safety buffer, since
// clients report round completion and that signal is not trusted on its own.
func (s Settings) GameDuration(buffer time.Duration) time.Duration {
	return time.Duration(s.Rounds)*time.Duration(s.RoundTime)*time.Second + buffer
}

// Player is a person seated in a room. Identity is not shared across rooms.
type Player struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"-"`
}

// Room represents a game session, identified by its short code
type Room struct {
	ID        string    `json:"roomId"`
	Code      string    `json:"roomCode"`
	HostID    string    `json:"hostId"`
	Settings  Settings  `json:"settings"`
	State     RoomState `json:"state"`
	Players   []Player  `json:"players"` // ordered by join time
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasPlayer reports whether playerID is currently seated in the room
func (r *Room) HasPlayer(playerID string) bool {
	for _, p := range r.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

func (r *Room) IsHost(playerID string) bool {
	return playerID != "" && r.HostID == playerID
}

// PlayerIDs returns the member ids in join order
func (r *Room) PlayerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

// RoomCreation is the body of a create or join request
type RoomCreation struct {
	PlayerName string `json:"playerName" binding:"required,min=1,max=50"`
}

// RoomAction is the body of the host/member actions on a room. PlayerID may be
// omitted when the session already knows who the caller is.
type RoomAction struct {
	PlayerID string `json:"playerId"`
}

// SettingsUpdate is the body of a settings change
type SettingsUpdate struct {
	PlayerID string        `json:"playerId"`
	Settings SettingsPatch `json:"settings"`
}

// PlayerView is the public representation of a player in responses and events
type PlayerView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	IsHost bool   `json:"isHost,omitempty"`
}

// PlayerViews maps the room members to their public representation
func (r *Room) PlayerViews() []PlayerView {
	views := make([]PlayerView, 0, len(r.Players))
	for _, p := range r.Players {
		views = append(views, PlayerView{ID: p.ID, Name: p.Name, IsHost: r.IsHost(p.ID)})
	}
	return views
}
