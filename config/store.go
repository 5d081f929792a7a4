package config

import (
	room_postgres "Conspiracy/services/postgres"
	room_redis "Conspiracy/services/redis"
	"Conspiracy/services/rooms"

	"github.com/sirupsen/logrus"
)

// ConnectStore opens the room repository selected by ROOM_STORE. The returned
// func releases the underlying connection.
func ConnectStore(cfg *Config) (rooms.Repository, func(), error) {
	switch cfg.RoomStore {
	case "redis":
		redisClient, err := Connect_redis(cfg)
		if err != nil {
			return nil, nil, err
		}
		closeStore := func() {
			if err := room_redis.CloseRedis(redisClient); err != nil {
				logrus.WithError(err).Error("Error closing Redis")
			}
		}
		return room_redis.NewRoomRepository(redisClient.Client), closeStore, nil
	default:
		gormDB, err := ConnectGORM(cfg)
		if err != nil {
			return nil, nil, err
		}

		// Only migrate in development or during deployment
		if cfg.Postgres.Migrate {
			logrus.Info("Migrating PostgreSQL database...")
			if err := MigrateDatabase(gormDB); err != nil {
				logrus.WithError(err).Warn("Database migration failed")
			}
		}

		sqlDB, err := gormDB.DB()
		if err != nil {
			return nil, nil, err
		}
		closeStore := func() {
			if err := sqlDB.Close(); err != nil {
				logrus.WithError(err).Error("Error closing PostgreSQL")
			}
		}
		return room_postgres.NewRoomRepository(gormDB), closeStore, nil
	}
}
