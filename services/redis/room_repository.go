package redis

import (
	"Conspiracy/models"
	redis_models "Conspiracy/models/redis"
	redis_utils "Conspiracy/services/redis/utils"
	"Conspiracy/services/rooms"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// maxWatchRetries bounds the optimistic retries of a room document update
const maxWatchRetries = 16

// RoomRepository stores every room as a JSON document. Secondary keys:
//   - "room:code:{code}" -> room id, claimed with SETNX
//   - "rooms:state:{STATE}" sorted set of room ids scored by updatedAt (ms)
//   - "rooms" set of every room id
//   - "player:{id}" and "player:{id}:rooms" for orphan accounting
type RoomRepository struct {
	client redis.UniversalClient
	now    func() time.Time
}

type Option func(*RoomRepository)

func WithClock(now func() time.Time) Option {
	return func(r *RoomRepository) { r.now = now }
}

func NewRoomRepository(client redis.UniversalClient, opts ...Option) *RoomRepository {
	r := &RoomRepository{client: client, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ rooms.Repository = (*RoomRepository)(nil)

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (r *RoomRepository) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	roomID, err := r.client.Get(ctx, redis_utils.FormatRoomCodeKey(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("room code %s: %w", code, rooms.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting room code: %w", err)
	}
	return r.FindByID(ctx, roomID)
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	doc, err := getRoom(ctx, r.client, id)
	if err != nil {
		return nil, err
	}
	return doc.ToModel(), nil
}

func getRoom(ctx context.Context, c redis.Cmdable, id string) (*redis_models.Room, error) {
	data, err := c.Get(ctx, redis_utils.FormatRoomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("room %s: %w", id, rooms.ErrNotFound)
		}
		return nil, fmt.Errorf("error getting room data: %w", err)
	}
	var doc redis_models.Room
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("error unmarshaling room data: %w", err)
	}
	return &doc, nil
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	codeKey := redis_utils.FormatRoomCodeKey(room.Code)
	claimed, err := r.client.SetNX(ctx, codeKey, room.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("error claiming room code: %w", err)
	}
	if !claimed {
		return fmt.Errorf("room code %s: %w", room.Code, rooms.ErrConflict)
	}

	doc := redis_models.NewRoom(room)
	data, err := json.Marshal(doc)
	if err != nil {
		r.client.Del(ctx, codeKey)
		return fmt.Errorf("error marshaling room data: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redis_utils.FormatRoomKey(room.ID), data, 0)
		pipe.ZAdd(ctx, redis_utils.FormatRoomStateKey(doc.State), redis.Z{Score: score(doc.UpdatedAt), Member: room.ID})
		pipe.SAdd(ctx, redis_utils.RoomsKey, room.ID)
		return nil
	})
	if err != nil {
		r.client.Del(ctx, codeKey)
		return fmt.Errorf("error saving room data: %w", err)
	}
	return nil
}

func (r *RoomRepository) Save(ctx context.Context, room *models.Room) error {
	updatedAt := room.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}
	return r.updateRoom(ctx, room.ID, func(doc *redis_models.Room, pipe redis.Pipeliner) error {
		doc.HostID = room.HostID
		doc.Settings = room.Settings
		doc.State = string(room.State)
		doc.UpdatedAt = updatedAt
		return nil
	})
}

// updateRoom runs a read-modify-write of the room document under WATCH. The
// mutation may queue extra commands on pipe; they run in the same transaction.
func (r *RoomRepository) updateRoom(ctx context.Context, roomID string, mutate func(doc *redis_models.Room, pipe redis.Pipeliner) error) error {
	key := redis_utils.FormatRoomKey(roomID)
	txf := func(tx *redis.Tx) error {
		doc, err := getRoom(ctx, tx, roomID)
		if err != nil {
			return err
		}
		oldState := doc.State

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if err := mutate(doc, pipe); err != nil {
				return err
			}
			data, err := json.Marshal(doc)
			if err != nil {
				return fmt.Errorf("error marshaling room data: %w", err)
			}
			pipe.Set(ctx, key, data, 0)
			if oldState != doc.State {
				pipe.ZRem(ctx, redis_utils.FormatRoomStateKey(oldState), roomID)
			}
			pipe.ZAdd(ctx, redis_utils.FormatRoomStateKey(doc.State), redis.Z{Score: score(doc.UpdatedAt), Member: roomID})
			return nil
		})
		return err
	}

	return r.watch(ctx, txf, key)
}

// watch runs txf under WATCH on keys, retrying when another client changed them
func (r *RoomRepository) watch(ctx context.Context, txf func(tx *redis.Tx) error, keys ...string) error {
	for attempt := 0; attempt < maxWatchRetries; attempt++ {
		err := r.client.Watch(ctx, txf, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("%v: too many concurrent updates", keys)
}

// DeleteByID removes the document and its secondary keys under WATCH, so a
// member added meanwhile is unlinked from the room as well.
func (r *RoomRepository) DeleteByID(ctx context.Context, id string) error {
	key := redis_utils.FormatRoomKey(id)
	txf := func(tx *redis.Tx) error {
		doc, err := getRoom(ctx, tx, id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.Del(ctx, redis_utils.FormatRoomCodeKey(doc.Code))
			for _, state := range models.RoomStates {
				pipe.ZRem(ctx, redis_utils.FormatRoomStateKey(string(state)), id)
			}
			pipe.SRem(ctx, redis_utils.RoomsKey, id)
			for _, p := range doc.Players {
				pipe.SRem(ctx, redis_utils.FormatPlayerRoomsKey(p.ID), id)
			}
			return nil
		})
		return err
	}

	err := r.watch(ctx, txf, key)
	if errors.Is(err, rooms.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error deleting room data: %w", err)
	}
	return nil
}

func (r *RoomRepository) Count(ctx context.Context) (int64, error) {
	return r.client.SCard(ctx, redis_utils.RoomsKey).Result()
}

func (r *RoomRepository) CountByState(ctx context.Context, state models.RoomState) (int64, error) {
	return r.client.ZCard(ctx, redis_utils.FormatRoomStateKey(string(state))).Result()
}

func (r *RoomRepository) FindOldest(ctx context.Context, state models.RoomState, limit int) ([]models.Room, error) {
	if limit <= 0 {
		return []models.Room{}, nil
	}
	ids, err := r.client.ZRange(ctx, redis_utils.FormatRoomStateKey(string(state)), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing %s rooms: %w", state, err)
	}
	return r.loadRooms(ctx, ids)
}

func (r *RoomRepository) FindStale(ctx context.Context, state models.RoomState, before time.Time) ([]models.Room, error) {
	ids, err := r.client.ZRangeByScore(ctx, redis_utils.FormatRoomStateKey(string(state)), &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(before.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("error listing stale %s rooms: %w", state, err)
	}
	return r.loadRooms(ctx, ids)
}

// loadRooms fetches the documents of ids, skipping the ones deleted meanwhile
func (r *RoomRepository) loadRooms(ctx context.Context, ids []string) ([]models.Room, error) {
	result := make([]models.Room, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, redis_utils.FormatRoomKey(id))
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("error getting room data: %w", err)
	}
	for _, value := range values {
		data, ok := value.(string)
		if !ok {
			continue
		}
		var doc redis_models.Room
		if err := json.Unmarshal([]byte(data), &doc); err != nil {
			return nil, fmt.Errorf("error unmarshaling room data: %w", err)
		}
		result = append(result, *doc.ToModel())
	}
	return result, nil
}

func (r *RoomRepository) AddMember(ctx context.Context, roomID string, player *models.Player) error {
	joinedAt := player.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = r.now()
	}
	record, err := json.Marshal(redis_models.PlayerRecord{ID: player.ID, Name: player.Name, CreatedAt: joinedAt})
	if err != nil {
		return fmt.Errorf("error marshaling player data: %w", err)
	}
	return r.updateRoom(ctx, roomID, func(doc *redis_models.Room, pipe redis.Pipeliner) error {
		if doc.IndexOf(player.ID) < 0 {
			doc.Players = append(doc.Players, redis_models.RoomMember{ID: player.ID, Name: player.Name, JoinedAt: joinedAt})
		}
		doc.UpdatedAt = joinedAt
		pipe.SetNX(ctx, redis_utils.FormatPlayerKey(player.ID), record, 0)
		pipe.SAdd(ctx, redis_utils.FormatPlayerRoomsKey(player.ID), roomID)
		pipe.SAdd(ctx, redis_utils.PlayersKey, player.ID)
		return nil
	})
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID string, playerID string) error {
	now := r.now()
	return r.updateRoom(ctx, roomID, func(doc *redis_models.Room, pipe redis.Pipeliner) error {
		i := doc.IndexOf(playerID)
		if i < 0 {
			return fmt.Errorf("player %s in room %s: %w", playerID, roomID, rooms.ErrNotFound)
		}
		doc.Players = append(doc.Players[:i], doc.Players[i+1:]...)
		doc.UpdatedAt = now
		pipe.SRem(ctx, redis_utils.FormatPlayerRoomsKey(playerID), roomID)
		return nil
	})
}

func (r *RoomRepository) ClearMembers(ctx context.Context, roomID string) error {
	err := r.updateRoom(ctx, roomID, func(doc *redis_models.Room, pipe redis.Pipeliner) error {
		for _, p := range doc.Players {
			pipe.SRem(ctx, redis_utils.FormatPlayerRoomsKey(p.ID), roomID)
		}
		doc.Players = []redis_models.RoomMember{}
		return nil
	})
	if errors.Is(err, rooms.ErrNotFound) {
		return nil
	}
	return err
}

func (r *RoomRepository) CountMembershipsForPlayer(ctx context.Context, playerID string) (int64, error) {
	return r.client.SCard(ctx, redis_utils.FormatPlayerRoomsKey(playerID)).Result()
}

func (r *RoomRepository) DeletePlayer(ctx context.Context, playerID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, redis_utils.FormatPlayerKey(playerID), redis_utils.FormatPlayerRoomsKey(playerID))
		pipe.SRem(ctx, redis_utils.PlayersKey, playerID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("error deleting player data: %w", err)
	}
	return nil
}

// DeleteOrphanPlayers scans every known player and deletes the ones without
// any room. Each deletion watches the player's room set, so a player seated
// in the meantime is kept.
func (r *RoomRepository) DeleteOrphanPlayers(ctx context.Context) (int64, error) {
	var deleted int64
	iter := r.client.SScan(ctx, redis_utils.PlayersKey, 0, "", 100).Iterator()
	for iter.Next(ctx) {
		playerID := iter.Val()
		roomsKey := redis_utils.FormatPlayerRoomsKey(playerID)
		removed := false
		txf := func(tx *redis.Tx) error {
			removed = false
			memberships, err := tx.SCard(ctx, roomsKey).Result()
			if err != nil || memberships > 0 {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, redis_utils.FormatPlayerKey(playerID), roomsKey)
				pipe.SRem(ctx, redis_utils.PlayersKey, playerID)
				return nil
			})
			removed = err == nil
			return err
		}
		if err := r.watch(ctx, txf, roomsKey); err != nil {
			return deleted, fmt.Errorf("error deleting orphan player %s: %w", playerID, err)
		}
		if removed {
			deleted++
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("error scanning players: %w", err)
	}
	return deleted, nil
}
