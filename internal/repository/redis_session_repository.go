package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decision-server/internal/model"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ SessionRepository = (*redisSessionRepository)(nil)

const sessionKeyPrefix = "decision_session:"

type redisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisSessionRepository создаёт хранилище снимков в Redis. Каждое сохранение продлевает TTL.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration, logger *zap.Logger) SessionRepository {
	return &redisSessionRepository{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisSessionRepo"),
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *redisSessionRepository) Save(ctx context.Context, s *model.Session) error {
	data, err := encodeSnapshot(s)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		r.logger.Error("Failed to save session snapshot", zap.String("session_id", s.ID), zap.Error(err))
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}

func (r *redisSessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load session snapshot", zap.String("session_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}
	return decodeSnapshot(id, data)
}

func (r *redisSessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	return nil
}
