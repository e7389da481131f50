package cache

import "gopkg.in/redis.v5"

// RedisRequestCacher stores activity entries in capped redis lists, newest
// first.
type RedisRequestCacher struct {
	client    *redis.Client
	maxNumber int
}

func NewRedisRequestCacher(client *redis.Client, maxNumber int) *RedisRequestCacher {
	return &RedisRequestCacher{client: client, maxNumber: maxNumber}
}

func (c *RedisRequestCacher) Write(key string, value []byte) error {
	pushCmd := c.client.LPush(key, value)

	if pushCmd.Err() != nil {
		return pushCmd.Err()
	}

	trimCmd := c.client.LTrim(key, 0, int64(c.maxNumber-1))

	if trimCmd.Err() != nil {
		return trimCmd.Err()
	}

	return nil
}

func (c *RedisRequestCacher) Read(key string) ([]string, error) {
	return c.client.LRange(key, 0, int64(c.maxNumber-1)).Result()
}
