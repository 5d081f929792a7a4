package config

import (
	"Conspiracy/services/redis"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Connect_redis opens the Redis connection used by the room store
func Connect_redis(cfg *Config) (*redis.RedisClient, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := redis.InitRedis(ctx, cfg.RedisURL, cfg.RedisDB)
	if err != nil {
		logrus.WithError(err).Error("Error connecting to Redis")
		return nil, err
	}
	logrus.Info("Redis connection established")
	return redisClient, nil
}
