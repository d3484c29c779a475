package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log        LogConfig        `mapstructure:"log"`
	Corpus     CorpusConfig     `mapstructure:"corpus"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Server     ServerConfig     `mapstructure:"server"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	OpenAI     OpenAIConfig     `mapstructure:"openai"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CorpusConfig struct {
	// Path to an intents JSON or YAML file. Empty uses the built-in corpus.
	Path string `mapstructure:"path"`
}

type ClassifierConfig struct {
	NGramMin  int     `mapstructure:"ngram_min"`
	NGramMax  int     `mapstructure:"ngram_max"`
	C         float64 `mapstructure:"c"`
	MaxIter   int     `mapstructure:"max_iter"`
	Tolerance float64 `mapstructure:"tolerance"`
	Seed      int64   `mapstructure:"seed"`
	// ResponseSeed fixes reply selection; 0 seeds from the clock.
	ResponseSeed int64 `mapstructure:"response_seed"`
}

type StorageConfig struct {
	Backend      string `mapstructure:"backend"`
	CSVPath      string `mapstructure:"csv_path"`
	HistoryLimit int    `mapstructure:"history_limit"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type OpenAIConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Model    string `mapstructure:"model"`
	Language string `mapstructure:"language"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("corpus.path", "")
	v.SetDefault("classifier.ngram_min", 1)
	v.SetDefault("classifier.ngram_max", 4)
	v.SetDefault("classifier.c", 1.0)
	v.SetDefault("classifier.max_iter", 10000)
	v.SetDefault("classifier.tolerance", 1e-4)
	v.SetDefault("classifier.seed", 0)
	v.SetDefault("classifier.response_seed", 0)
	v.SetDefault("storage.backend", "csv")
	v.SetDefault("storage.csv_path", "chat_log.csv")
	v.SetDefault("storage.history_limit", 100)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "intentbot")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.key", "intentbot:conversation")
	v.SetDefault("server.addr", ":8501")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("telegram.token", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "whisper-1")
	v.SetDefault("openai.language", "")
}

// LoadConfig reads path (optional; a missing file keeps defaults), then
// the environment. A .env file in the working directory is loaded first.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	// INTENTBOT_STORAGE_BACKEND overrides storage.backend, and so on
	v.SetEnvPrefix("intentbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Redis.URL = redisURL
	}
	if token := os.Getenv("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings that would train a broken model or select an
// unknown backend.
func (c *Config) Validate() error {
	cl := c.Classifier
	if cl.NGramMin < 1 {
		return fmt.Errorf("classifier.ngram_min must be >= 1, got %d", cl.NGramMin)
	}
	if cl.NGramMax < cl.NGramMin {
		return fmt.Errorf("classifier.ngram_max (%d) must be >= ngram_min (%d)", cl.NGramMax, cl.NGramMin)
	}
	if cl.MaxIter < 1 {
		return fmt.Errorf("classifier.max_iter must be >= 1, got %d", cl.MaxIter)
	}
	if cl.C <= 0 {
		return fmt.Errorf("classifier.c must be positive, got %v", cl.C)
	}
	if cl.Tolerance <= 0 {
		return fmt.Errorf("classifier.tolerance must be positive, got %v", cl.Tolerance)
	}

	switch c.Storage.Backend {
	case "csv":
		if c.Storage.CSVPath == "" {
			return errors.New("storage.csv_path is required for the csv backend")
		}
	case "memory", "postgres":
	case "redis":
		if c.Redis.URL == "" {
			return errors.New("redis.url (or REDIS_URL) is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}
