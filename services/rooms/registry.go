package rooms

import (
	game_constants "Conspiracy/constants/game"
	"Conspiracy/models"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Policy groups the tunables of the room lifecycle
type Policy struct {
	DefaultSettings   models.Settings
	MinPlayersToStart int
	IdleLobbyDelay    time.Duration
	EmptyRoomDelay    time.Duration
	PostGameDelay     time.Duration
	GameBuffer        time.Duration
	MaxCodeAttempts   int
}

func DefaultPolicy() Policy {
	return Policy{
		DefaultSettings: models.Settings{
			MaxPlayers: game_constants.DEFAULT_MAX_PLAYERS,
			RoundTime:  game_constants.DEFAULT_ROUND_TIME,
			Rounds:     game_constants.DEFAULT_ROUNDS,
		},
		MinPlayersToStart: game_constants.MIN_PLAYERS_TO_START,
		IdleLobbyDelay:    game_constants.LOBBY_IDLE_TIMEOUT,
		EmptyRoomDelay:    game_constants.EMPTY_ROOM_DELAY,
		PostGameDelay:     game_constants.POST_GAME_DELAY,
		GameBuffer:        game_constants.GAME_DURATION_BUFFER,
		MaxCodeAttempts:   game_constants.CODE_MAX_ATTEMPTS,
	}
}

// Registry performs every mutation on rooms and their membership. It is the
// only component that arms or cancels cleanup timers.
type Registry struct {
	repo      Repository
	scheduler Scheduler
	notifier  Notifier
	codes     CodeAllocator
	policy    Policy
	locks     *roomLocks
	newID     func() string
	now       func() time.Time
}

type Option func(*Registry)

func WithCodeAllocator(codes CodeAllocator) Option {
	return func(r *Registry) { r.codes = codes }
}

func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(r *Registry) { r.newID = newID }
}

func NewRegistry(repo Repository, scheduler Scheduler, notifier Notifier, policy Policy, opts ...Option) *Registry {
	if repo == nil || scheduler == nil || notifier == nil {
		panic("rooms: repository, scheduler and notifier are required")
	}
	if policy.MaxCodeAttempts <= 0 {
		policy.MaxCodeAttempts = game_constants.CODE_MAX_ATTEMPTS
	}
	if policy.MinPlayersToStart <= 0 {
		policy.MinPlayersToStart = game_constants.MIN_PLAYERS_TO_START
	}
	r := &Registry{
		repo:      repo,
		scheduler: scheduler,
		notifier:  notifier,
		codes:     RandomCodes{},
		policy:    policy,
		locks:     newRoomLocks(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom creates the host player and a LOBBY room seated by it, then arms
// the idle-lobby timer.
func (r *Registry) CreateRoom(ctx context.Context, playerName string) (*models.Room, *models.Player, error) {
	logCtx := logrus.WithField("player_name", playerName)

	now := r.now()
	player := &models.Player{ID: r.newID(), Name: playerName, JoinedAt: now}
	room := &models.Room{
		ID:        r.newID(),
		HostID:    player.ID,
		Settings:  r.policy.DefaultSettings,
		State:     models.RoomStateLobby,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.insertWithUniqueCode(ctx, room); err != nil {
		logCtx.WithError(err).Error("Failed to create room")
		return nil, nil, err
	}
	logCtx = logCtx.WithFields(logrus.Fields{"room_id": room.ID, "room_code": room.Code})

	if err := r.repo.AddMember(ctx, room.ID, player); err != nil {
		// The room exists without members: let the empty-room timer reclaim it
		logCtx.WithError(err).Error("Failed to seat the host, scheduling reclamation")
		r.scheduler.ScheduleCleanup(room.ID, r.policy.EmptyRoomDelay)
		return nil, nil, unavailable("add host to room", err)
	}
	room.Players = []models.Player{*player}

	r.scheduler.ScheduleCleanup(room.ID, r.policy.IdleLobbyDelay)

	logCtx.Info("Room created")
	return room, player, nil
}

// insertWithUniqueCode allocates codes until the repository accepts one
func (r *Registry) insertWithUniqueCode(ctx context.Context, room *models.Room) error {
	for attempt := 1; attempt <= r.policy.MaxCodeAttempts; attempt++ {
		code, err := r.codes.Allocate()
		if err != nil {
			return fmt.Errorf("%w: allocate room code: %w", ErrUnavailable, err)
		}
		room.Code = code

		err = r.repo.Create(ctx, room)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return unavailable("create room", err)
		}
		logrus.WithField("room_code", code).Warnf("Room code already taken, retrying (attempt %d)", attempt)
	}
	return fmt.Errorf("%w: no free room code after %d attempts", ErrUnavailable, r.policy.MaxCodeAttempts)
}

// JoinRoom seats a new player in an open room. A join proves the room is
// alive, so any pending cleanup is cancelled.
func (r *Registry) JoinRoom(ctx context.Context, code string, playerName string) (*models.Room, *models.Player, error) {
	unlock := r.locks.Lock(code)
	defer unlock()

	logCtx := logrus.WithFields(logrus.Fields{"room_code": code, "player_name": playerName})

	room, err := r.findRoom(ctx, code)
	if err != nil {
		return nil, nil, err
	}
	switch room.State {
	case models.RoomStateInGame:
		return nil, nil, fmt.Errorf("%w: game already in progress", ErrPreconditionFailed)
	case models.RoomStateFinished:
		return nil, nil, fmt.Errorf("%w: room is closed", ErrPreconditionFailed)
	}
	if len(room.Players) >= room.Settings.MaxPlayers {
		return nil, nil, fmt.Errorf("%w: room is full", ErrPreconditionFailed)
	}

	player := &models.Player{ID: r.newID(), Name: playerName, JoinedAt: r.now()}
	if err := r.repo.AddMember(ctx, room.ID, player); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: room %s", ErrNotFound, code)
		}
		logCtx.WithError(err).Error("Failed to add player to room")
		return nil, nil, unavailable("add member", err)
	}

	r.scheduler.CancelCleanup(room.ID)

	room, err = r.reload(ctx, room)
	if err != nil {
		return nil, nil, err
	}

	r.notifier.Notify(ctx, room.Code, game_constants.EVENT_ROOM_JOINED, map[string]interface{}{
		"players": room.PlayerViews(),
	})

	logCtx.WithField("player_id", player.ID).Info("Player joined room")
	return room, player, nil
}

// LeaveRoom unseats a player. The last player out finishes the room and arms
// the empty-room timer; a departing host hands over to the earliest remaining
// member.
func (r *Registry) LeaveRoom(ctx context.Context, code string, playerID string) (*models.Room, error) {
	unlock := r.locks.Lock(code)
	defer unlock()

	logCtx := logrus.WithFields(logrus.Fields{"room_code": code, "player_id": playerID})

	room, err := r.findRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.HasPlayer(playerID) {
		return nil, fmt.Errorf("%w: player %s is not in room %s", ErrNotFound, playerID, code)
	}

	if err := r.repo.RemoveMember(ctx, room.ID, playerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: player %s is not in room %s", ErrNotFound, playerID, code)
		}
		logCtx.WithError(err).Error("Failed to remove player from room")
		return nil, unavailable("remove member", err)
	}

	r.releasePlayer(ctx, playerID, logCtx)

	// Membership may have changed while we were waiting on the store
	room, err = r.reload(ctx, room)
	if err != nil {
		return nil, err
	}

	if len(room.Players) == 0 {
		room.State = models.RoomStateFinished
		room.HostID = ""
		if err := r.save(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to finish empty room")
			return nil, err
		}
		r.scheduler.ScheduleCleanup(room.ID, r.policy.EmptyRoomDelay)

		r.notifier.Notify(ctx, room.Code, game_constants.EVENT_ROOM_LEFT, map[string]interface{}{
			"players": []models.PlayerView{},
			"state":   room.State,
		})
		logCtx.Info("Last player left, room finished")
		return room, nil
	}

	if room.HostID == playerID || !room.HasPlayer(room.HostID) {
		room.HostID = room.Players[0].ID
		if err := r.save(ctx, room); err != nil {
			logCtx.WithError(err).Error("Failed to reassign host")
			return nil, err
		}
		logCtx.WithField("host_id", room.HostID).Info("Host reassigned")
	}

	r.notifier.Notify(ctx, room.Code, game_constants.EVENT_ROOM_LEFT, map[string]interface{}{
		"players": room.PlayerViews(),
		"hostId":  room.HostID,
	})

	logCtx.Info("Player left room")
	return room, nil
}

// UpdateSettings merges patch into the room settings. Host only, and only
// before the game starts.
func (r *Registry) UpdateSettings(ctx context.Context, code string, playerID string, patch models.SettingsPatch) (*models.Room, error) {
	unlock := r.locks.Lock(code)
	defer unlock()

	room, err := r.findRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(playerID) {
		return nil, fmt.Errorf("%w: only the host can update settings", ErrForbidden)
	}
	if room.State != models.RoomStateLobby {
		return nil, fmt.Errorf("%w: settings cannot change once the game has started", ErrPreconditionFailed)
	}

	room.Settings = room.Settings.Merge(patch)
	if err := r.save(ctx, room); err != nil {
		return nil, err
	}

	r.notifier.Notify(ctx, room.Code, game_constants.EVENT_ROOM_SETTINGS_UPDATED, map[string]interface{}{
		"settings": room.Settings,
	})

	logrus.WithFields(logrus.Fields{"room_code": code, "settings": room.Settings}).Info("Room settings updated")
	return room, nil
}

// releasePlayer deletes a player left without any room. Failures are only
// logged: the periodic sweep removes the orphans it leaves behind.
func (r *Registry) releasePlayer(ctx context.Context, playerID string, logCtx *logrus.Entry) {
	memberships, err := r.repo.CountMembershipsForPlayer(ctx, playerID)
	if err != nil {
		logCtx.WithError(err).Warn("Failed to count player memberships")
		return
	}
	if memberships > 0 {
		return
	}
	if err := r.repo.DeletePlayer(ctx, playerID); err != nil {
		logCtx.WithError(err).Warn("Failed to delete orphan player")
		return
	}
	logCtx.Debug("Deleted orphan player")
}

// StartGame moves a LOBBY room into IN_GAME and swaps the idle-lobby timer for
// one covering the whole game.
func (r *Registry) StartGame(ctx context.Context, code string, playerID string) (*models.Room, error) {
	unlock := r.locks.Lock(code)
	defer unlock()

	room, err := r.findRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(playerID) {
		return nil, fmt.Errorf("%w: only the host can start the game", ErrForbidden)
	}
	if room.State != models.RoomStateLobby {
		return nil, fmt.Errorf("%w: game cannot start from state %s", ErrPreconditionFailed, room.State)
	}
	if len(room.Players) < r.policy.MinPlayersToStart {
		return nil, fmt.Errorf("%w: need at least %d players to start", ErrPreconditionFailed, r.policy.MinPlayersToStart)
	}

	room.State = models.RoomStateInGame
	if err := r.save(ctx, room); err != nil {
		return nil, err
	}

	duration := room.Settings.GameDuration(r.policy.GameBuffer)
	r.scheduler.ScheduleCleanup(room.ID, duration)

	r.notifier.Notify(ctx, room.Code, game_constants.EVENT_ROOM_STARTED, map[string]interface{}{
		"state": room.State,
	})

	logrus.WithFields(logrus.Fields{"room_code": code, "game_duration": duration}).Info("Game started")
	return room, nil
}

// EndGame finishes a running game and arms the post-game timer
func (r *Registry) EndGame(ctx context.Context, code string, playerID string) (*models.Room, error) {
	unlock := r.locks.Lock(code)
	defer unlock()

	room, err := r.findRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if !room.IsHost(playerID) {
		return nil, fmt.Errorf("%w: only the host can end the game", ErrForbidden)
	}
	if room.State != models.RoomStateInGame {
		return nil, fmt.Errorf("%w: no game in progress", ErrPreconditionFailed)
	}

	room.State = models.RoomStateFinished
	if err := r.save(ctx, room); err != nil {
		return nil, err
	}

	r.scheduler.ScheduleCleanup(room.ID, r.policy.PostGameDelay)

	r.notifier.Notify(ctx, room.Code, game_constants.EVENT_ROOM_ENDED, map[string]interface{}{
		"state": room.State,
	})

	logrus.WithField("room_code", code).Info("Game ended")
	return room, nil
}

// GetRoom fetches a room with its members
func (r *Registry) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	return r.findRoom(ctx, code)
}

func (r *Registry) findRoom(ctx context.Context, code string) (*models.Room, error) {
	room, err := r.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: room %s", ErrNotFound, code)
		}
		logrus.WithField("room_code", code).WithError(err).Error("Failed to fetch room")
		return nil, unavailable("find room", err)
	}
	return room, nil
}

func (r *Registry) reload(ctx context.Context, room *models.Room) (*models.Room, error) {
	fresh, err := r.repo.FindByID(ctx, room.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: room %s", ErrNotFound, room.Code)
		}
		return nil, unavailable("reload room", err)
	}
	return fresh, nil
}

func (r *Registry) save(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = r.now()
	if err := r.repo.Save(ctx, room); err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: room %s", ErrNotFound, room.Code)
		}
		return unavailable("save room", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
