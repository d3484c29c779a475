package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/intent-bot/internal/models"
	"go.uber.org/zap"
)

// Storage is an append-only conversation log.
type Storage interface {
	// Append records one turn. Entries without ID or Timestamp get one.
	Append(ctx context.Context, entry *models.ConversationEntry) error
	// History returns entries newest first. limit <= 0 returns all.
	History(ctx context.Context, limit int) ([]models.ConversationEntry, error)
	Close() error
}

const (
	BackendCSV      = "csv"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config selects and configures a storage backend.
type Config struct {
	Backend  string
	CSVPath  string
	Database DatabaseConfig
	RedisURL string
	RedisKey string
}

// New opens the backend named in cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Storage, error) {
	switch cfg.Backend {
	case BackendCSV, "":
		logger.Info("Using CSV conversation log", zap.String("path", cfg.CSVPath))
		return NewCSVStorage(cfg.CSVPath)
	case BackendMemory:
		logger.Info("Using in-memory conversation log")
		return NewMemoryStorage(), nil
	case BackendPostgres:
		logger.Info("Using PostgreSQL conversation log",
			zap.String("host", cfg.Database.Host),
			zap.String("dbname", cfg.Database.DBName))
		return NewPostgresStorage(ctx, cfg.Database)
	case BackendRedis:
		logger.Info("Using Redis conversation log", zap.String("key", cfg.RedisKey))
		return NewRedisStorage(ctx, cfg.RedisURL, cfg.RedisKey)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func prepare(entry *models.ConversationEntry) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
}
