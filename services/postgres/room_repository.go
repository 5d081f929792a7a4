package postgres

import (
	"Conspiracy/models"
	pg_models "Conspiracy/models/postgres"
	"Conspiracy/services/rooms"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const uniqueViolation = "23505"

// RoomRepository stores rooms, players and memberships in PostgreSQL
type RoomRepository struct {
	db  *gorm.DB
	now func() time.Time
}

type Option func(*RoomRepository)

func WithClock(now func() time.Time) Option {
	return func(r *RoomRepository) { r.now = now }
}

func NewRoomRepository(db *gorm.DB, opts ...Option) *RoomRepository {
	r := &RoomRepository{db: db, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ rooms.Repository = (*RoomRepository)(nil)

func (r *RoomRepository) withPlayers(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("RoomPlayers", func(db *gorm.DB) *gorm.DB {
			return db.Order("room_players.id ASC")
		}).
		Preload("RoomPlayers.Player")
}

func (r *RoomRepository) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	var row pg_models.Room
	if err := r.withPlayers(ctx).Where("code = ?", code).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel()
}

func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	var row pg_models.Room
	if err := r.withPlayers(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate(err)
	}
	return row.ToModel()
}

func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	row, err := pg_models.NewRoom(room)
	if err != nil {
		return fmt.Errorf("error marshaling room settings: %w", err)
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(row).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *RoomRepository) Save(ctx context.Context, room *models.Room) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return fmt.Errorf("error marshaling room settings: %w", err)
	}
	if room.UpdatedAt.IsZero() {
		room.UpdatedAt = r.now()
	}
	result := r.db.WithContext(ctx).Model(&pg_models.Room{}).
		Where("id = ?", room.ID).
		UpdateColumns(map[string]interface{}{
			"host_id":    room.HostID,
			"settings":   datatypes.JSON(settings),
			"state":      string(room.State),
			"updated_at": room.UpdatedAt,
		})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("room %s: %w", room.ID, rooms.ErrNotFound)
	}
	return nil
}

func (r *RoomRepository) DeleteByID(ctx context.Context, id string) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", id).Delete(&pg_models.Room{}).Error)
}

func (r *RoomRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&pg_models.Room{}).Count(&count).Error
	return count, translate(err)
}

func (r *RoomRepository) CountByState(ctx context.Context, state models.RoomState) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&pg_models.Room{}).
		Where("state = ?", string(state)).
		Count(&count).Error
	return count, translate(err)
}

func (r *RoomRepository) FindOldest(ctx context.Context, state models.RoomState, limit int) ([]models.Room, error) {
	if limit <= 0 {
		return []models.Room{}, nil
	}
	var rows []pg_models.Room
	err := r.db.WithContext(ctx).
		Where("state = ?", string(state)).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return toModels(rows)
}

func (r *RoomRepository) FindStale(ctx context.Context, state models.RoomState, before time.Time) ([]models.Room, error) {
	var rows []pg_models.Room
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", string(state), before).
		Order("updated_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return toModels(rows)
}

func (r *RoomRepository) AddMember(ctx context.Context, roomID string, player *models.Player) error {
	joinedAt := player.JoinedAt
	if joinedAt.IsZero() {
		joinedAt = r.now()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := touchRoom(tx, roomID, joinedAt); err != nil {
			return err
		}
		row := pg_models.Player{ID: player.ID, Name: player.Name, CreatedAt: joinedAt}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
			return err
		}
		membership := pg_models.RoomPlayer{RoomID: roomID, PlayerID: player.ID, JoinedAt: joinedAt}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&membership).Error
	})
	return translate(err)
}

func (r *RoomRepository) RemoveMember(ctx context.Context, roomID string, playerID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("room_id = ? AND player_id = ?", roomID, playerID).Delete(&pg_models.RoomPlayer{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("player %s in room %s: %w", playerID, roomID, rooms.ErrNotFound)
		}
		return touchRoom(tx, roomID, r.now())
	})
	return translate(err)
}

func (r *RoomRepository) ClearMembers(ctx context.Context, roomID string) error {
	return translate(r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&pg_models.RoomPlayer{}).Error)
}

func (r *RoomRepository) CountMembershipsForPlayer(ctx context.Context, playerID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&pg_models.RoomPlayer{}).
		Where("player_id = ?", playerID).
		Count(&count).Error
	return count, translate(err)
}

func (r *RoomRepository) DeletePlayer(ctx context.Context, playerID string) error {
	return translate(r.db.WithContext(ctx).Where("id = ?", playerID).Delete(&pg_models.Player{}).Error)
}

func (r *RoomRepository) DeleteOrphanPlayers(ctx context.Context) (int64, error) {
	memberships := r.db.Model(&pg_models.RoomPlayer{}).Select("1").Where("room_players.player_id = players.id")
	result := r.db.WithContext(ctx).Where("NOT EXISTS (?)", memberships).Delete(&pg_models.Player{})
	if result.Error != nil {
		return 0, translate(result.Error)
	}
	return result.RowsAffected, nil
}

func touchRoom(tx *gorm.DB, roomID string, at time.Time) error {
	result := tx.Model(&pg_models.Room{}).Where("id = ?", roomID).UpdateColumn("updated_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("room %s: %w", roomID, rooms.ErrNotFound)
	}
	return nil
}

func toModels(rows []pg_models.Room) ([]models.Room, error) {
	result := make([]models.Room, 0, len(rows))
	for i := range rows {
		room, err := rows[i].ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, *room)
	}
	return result, nil
}

// translate maps driver errors to the repository error contract
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rooms.ErrNotFound) || errors.Is(err, rooms.ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %w", rooms.ErrNotFound, err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %w", rooms.ErrConflict, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return fmt.Errorf("%w: %w", rooms.ErrConflict, err)
	}
	return err
}
