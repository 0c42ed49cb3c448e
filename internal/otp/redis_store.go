package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefix = "password_reset:"

// Hash fields of a pending code.
const (
	fieldHash  = "hash"
	fieldFails = "fails"
)

// countFailure bumps the failure count of a live code and deletes the code once
// the limit is reached. A key that expired meanwhile is left alone, so no
// ttl-less key is created.
var countFailure = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
local n = redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
if n >= tonumber(ARGV[2]) then
	redis.call("DEL", KEYS[1])
end
return n
`)

// RedisStore keeps codes in redis and lets key expiry enforce the ttl.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func key(userID uuid.UUID) string {
	return keyPrefix + userID.String()
}

func (s *RedisStore) Save(ctx context.Context, userID uuid.UUID, code string, ttl time.Duration) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash otp: %w", err)
	}
	k := key(userID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, fieldHash, hash, fieldFails, 0)
		pipe.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	return nil
}

func (s *RedisStore) Verify(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	k := key(userID)
	hash, err := s.rdb.HGet(ctx, k, fieldHash).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp: %w", err)
	}
	if bcrypt.CompareHashAndPassword(hash, []byte(code)) == nil {
		return true, nil
	}

	if err := countFailure.Run(ctx, s.rdb, []string{k}, fieldFails, MaxFailures).Err(); err != nil {
		return false, fmt.Errorf("count otp failure: %w", err)
	}
	return false, nil
}

func (s *RedisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	if err := s.rdb.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("clear otp: %w", err)
	}
	return nil
}
