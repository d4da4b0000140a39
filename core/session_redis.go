package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore is the production session backend. Redis TTL mirrors the
// sliding window, so abandoned sessions expire without a reaper.
type RedisSessionStore struct {
	client redis.UniversalClient
	idle   time.Duration
}

func NewRedisSessionStore(client redis.UniversalClient, idle time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, idle: idle}
}

func (s *RedisSessionStore) Create(ctx context.Context, username string) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	sess := Session{
		Token:     token,
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.idle),
	}
	if err := s.save(ctx, sess); err != nil {
		return "", err
	}
	return token, nil
}

func (s *RedisSessionStore) Validate(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionInvalid
	}
	data, err := s.client.Get(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, ErrSessionInvalid
		}
		return Session{}, fmt.Errorf("session get: %w", err)
	}
	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return Session{}, fmt.Errorf("session decode: %w", err)
	}
	// Redis TTL should have removed it already; double-check the stamp.
	now := time.Now()
	if now.After(sess.ExpiresAt) {
		_ = s.Invalidate(ctx, token)
		return Session{}, ErrSessionInvalid
	}
	if exp := now.Add(s.idle); exp.After(sess.ExpiresAt) {
		sess.ExpiresAt = exp
		if err := s.save(ctx, sess); err != nil {
			return Session{}, err
		}
	}
	return sess, nil
}

func (s *RedisSessionStore) Invalidate(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.client.Del(ctx, sessionKeyPrefix+token).Err()
}

func (s *RedisSessionStore) save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return ErrSessionInvalid
	}
	return s.client.Set(ctx, sessionKeyPrefix+sess.Token, data, ttl).Err()
}
