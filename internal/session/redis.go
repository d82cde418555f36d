package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const grantKeyPrefix = "ifpass:grant:"

// RedisGrantStore mirrors grants into Redis so a restarted process can
// restore browser sessions instead of bouncing every user to login.
type RedisGrantStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGrantStore(client *redis.Client, ttl time.Duration) *RedisGrantStore {
	return &RedisGrantStore{client: client, ttl: ttl}
}

func (s *RedisGrantStore) Save(ctx context.Context, sid string, grant Grant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, grantKeyPrefix+sid, data, s.ttl).Err()
}

func (s *RedisGrantStore) Load(ctx context.Context, sid string) (Grant, bool, error) {
	value, err := s.client.Get(ctx, grantKeyPrefix+sid).Result()
	if err == redis.Nil {
		return Grant{}, false, nil
	}
	if err != nil {
		return Grant{}, false, err
	}
	var grant Grant
	if err := json.Unmarshal([]byte(value), &grant); err != nil {
		return Grant{}, false, err
	}
	return grant, true, nil
}

func (s *RedisGrantStore) Delete(ctx context.Context, sid string) error {
	return s.client.Del(ctx, grantKeyPrefix+sid).Err()
}
