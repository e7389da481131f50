package config

import (
	"os"

	"gopkg.in/redis.v5"
)

// SetupRedis connects to the redis instance named by REDIS_URL. It returns
// nil when the variable is unset; callers treat a nil client as "activity
// tracking disabled".
func SetupRedis() *redis.Client {
	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl == "" {
		return nil
	}

	return redis.NewClient(&redis.Options{
		Addr: redisUrl,
	})
}
