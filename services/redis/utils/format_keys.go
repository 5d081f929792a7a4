package utils

/**
 * Key formats of the room store, so call sites never build keys by hand.
 */

import "fmt"

// RoomsKey is the set of every room id, used for the total count
const RoomsKey = "rooms"

// PlayersKey is the set of every player id, scanned by the orphan sweep
const PlayersKey = "players"

func FormatRoomKey(roomID string) string {
	return fmt.Sprintf("room:%s", roomID)
}

func FormatRoomCodeKey(code string) string {
	return fmt.Sprintf("room:code:%s", code)
}

// FormatRoomStateKey is the sorted set of the rooms in a state, scored by updatedAt
func FormatRoomStateKey(state string) string {
	return fmt.Sprintf("rooms:state:%s", state)
}

func FormatPlayerKey(playerID string) string {
	return fmt.Sprintf("player:%s", playerID)
}

func FormatPlayerRoomsKey(playerID string) string {
	return fmt.Sprintf("player:%s:rooms", playerID)
}
