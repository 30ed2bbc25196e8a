package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingEnv = errors.New("required environment variable is not set")

type Config struct {
	Server  ServerConfig
	Log     LogConfig
	MongoDB MongoDBConfig
	Kafka   KafkaConfig
	Redis   RedisConfig
	Report  ReportConfig
	// ReviewPlatformURL - внешняя площадка отзывов, куда отправляются гости с оценкой 5
	ReviewPlatformURL string
	CORSAllowOrigins  []string
}

type ServerConfig struct {
	Host string // Адрес хоста (по умолчанию 0.0.0.0)
	Port string // Порт сервера (по умолчанию 8080)
}

type LogConfig struct {
	Level        string
	LogstashAddr string
}

type MongoDBConfig struct {
	URI                    string        // URI подключения к MongoDB (обязательный)
	Database               string        // Имя базы данных (обязательный)
	ServerSelectionTimeout time.Duration // Ожидание выбора сервера
	SocketTimeout          time.Duration // Таймаут простоя сокета
}

type KafkaConfig struct {
	Brokers []string // Пустой список отключает публикацию событий
	Topic   string
}

// Enabled сообщает, настроена ли публикация событий
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

type RedisConfig struct {
	Addr      string // Пустой адрес отключает кеш отчёта
	Password  string
	DB        int
	ReportTTL time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type ReportConfig struct {
	Schedule string // cron-выражение, пустое отключает выгрузку по расписанию
	Dir      string
}

// Load читает .env (если есть) и переменные окружения.
// Без MONGODB_URI и MONGODB_DATABASE сервис не стартует.
func Load() (*Config, error) {
	// .env нужен только для локального запуска
	_ = godotenv.Load()

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		return nil, fmt.Errorf("MONGODB_URI: %w", ErrMissingEnv)
	}
	database := os.Getenv("MONGODB_DATABASE")
	if database == "" {
		return nil, fmt.Errorf("MONGODB_DATABASE: %w", ErrMissingEnv)
	}

	serverSelection, err := getDuration("MONGODB_SERVER_SELECTION_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	socketTimeout, err := getDuration("MONGODB_SOCKET_TIMEOUT", 45*time.Second)
	if err != nil {
		return nil, err
	}
	reportTTL, err := getDuration("REPORT_CACHE_TTL", time.Minute)
	if err != nil {
		return nil, err
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Log: LogConfig{
			Level:        getEnv("LOG_LEVEL", "info"),
			LogstashAddr: os.Getenv("LOGSTASH_ADDR"),
		},
		MongoDB: MongoDBConfig{
			URI:                    uri,
			Database:               database,
			ServerSelectionTimeout: serverSelection,
			SocketTimeout:          socketTimeout,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "feedback_events"),
		},
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			ReportTTL: reportTTL,
		},
		Report: ReportConfig{
			Schedule: os.Getenv("REPORT_SCHEDULE"),
			Dir:      getEnv("REPORT_DIR", "./reports"),
		},
		ReviewPlatformURL: os.Getenv("REVIEW_PLATFORM_URL"),
		CORSAllowOrigins:  splitList(getEnv("CORS_ALLOW_ORIGINS", "*")),
	}, nil
}

func (c *ServerConfig) Address() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
