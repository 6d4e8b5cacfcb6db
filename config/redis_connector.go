package config

import (
	"gopkg.in/redis.v5"
)

func SetupRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
