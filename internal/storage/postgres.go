package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/xaenox/intent-bot/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(ctx context.Context, config DatabaseConfig) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := NewPostgresStorageFromDB(db)
	if err := storage.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	return storage, nil
}

// NewPostgresStorageFromDB wraps an open connection without running
// migrations.
func NewPostgresStorageFromDB(db *sql.DB) *PostgresStorage {
	return &PostgresStorage{db: db}
}

func (s *PostgresStorage) initializeSchema(ctx context.Context) error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Append(ctx context.Context, entry *models.ConversationEntry) error {
	prepare(entry)

	query := `
		INSERT INTO conversation_log (id, input, response, tag, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.db.ExecContext(ctx, query,
		entry.ID,
		entry.Input,
		entry.Response,
		entry.Tag,
		string(entry.Source),
		entry.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("error inserting conversation entry: %w", err)
	}
	return nil
}

func (s *PostgresStorage) History(ctx context.Context, limit int) ([]models.ConversationEntry, error) {
	query := `
		SELECT id, input, response, tag, source, created_at
		FROM conversation_log
		ORDER BY created_at DESC, seq DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, query+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying conversation log: %w", err)
	}
	defer rows.Close()

	entries := []models.ConversationEntry{}
	for rows.Next() {
		var (
			entry  models.ConversationEntry
			source string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Input,
			&entry.Response,
			&entry.Tag,
			&source,
			&entry.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("error scanning conversation entry: %w", err)
		}
		entry.Source = models.Source(source)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation log: %w", err)
	}

	return entries, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}
