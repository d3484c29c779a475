package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/xaenox/intent-bot/internal/models"
)

// DefaultRedisKey is the list key used when none is configured.
const DefaultRedisKey = "intentbot:conversation"

// RedisStorage keeps the log in a Redis list with the newest entry at the
// head, so LRANGE returns history in display order.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func NewRedisStorage(ctx context.Context, redisURL, key string) (*RedisStorage, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStorageFromClient(client, key), nil
}

func NewRedisStorageFromClient(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStorage{client: client, key: key}
}

func (s *RedisStorage) Append(ctx context.Context, entry *models.ConversationEntry) error {
	prepare(entry)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation entry: %w", err)
	}

	if err := s.client.LPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("failed to append conversation entry: %w", err)
	}
	return nil
}

func (s *RedisStorage) History(ctx context.Context, limit int) ([]models.ConversationEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	items, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation log: %w", err)
	}

	entries := make([]models.ConversationEntry, 0, len(items))
	for _, item := range items {
		var entry models.ConversationEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
