package game_constants

import "time"

// Default settings for a freshly created room
const (
	DEFAULT_MAX_PLAYERS = 6
	DEFAULT_ROUND_TIME  = 90 // seconds
	DEFAULT_ROUNDS      = 3
)

const MIN_PLAYERS_TO_START = 2
const MAX_PLAYER_NAME_LENGTH = 50

// Room codes
const (
	ROOM_CODE_LENGTH   = 6
	ROOM_CODE_ALPHABET = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CODE_MAX_ATTEMPTS  = 10
)

// Cleanup policy. All of them can be overridden through the environment.
const (
	MAX_ROOMS             = 100
	LOBBY_IDLE_TIMEOUT    = 30 * time.Minute
	EMPTY_ROOM_DELAY      = 2 * time.Minute
	POST_GAME_DELAY       = 5 * time.Minute
	FINISHED_ROOM_TIMEOUT = 5 * time.Minute
	GAME_DURATION_BUFFER  = 5 * time.Minute
	CLEANUP_INTERVAL      = 10 * time.Minute
)

// Events emitted to the subscribers of a room
const (
	EVENT_ROOM_JOINED           = "room:joined"
	EVENT_ROOM_LEFT             = "room:left"
	EVENT_ROOM_SETTINGS_UPDATED = "room:settingsUpdated"
	EVENT_ROOM_STARTED          = "room:started"
	EVENT_ROOM_ENDED            = "room:ended"
)
