package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all service configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string
	Host string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MigrationsPath string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       []string
	EventsTopic   string
	SignalsTopic  string
	ConsumerGroup string
}

// RedisConfig holds the last-signal cache configuration
type RedisConfig struct {
	URL string
	TTL time.Duration
}

// AuthConfig holds the session token settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LogConfig selects the log level and format
type LogConfig struct {
	Level  string
	Format string
}

// ClientConfig holds the settings of the command line client
type ClientConfig struct {
	APIBase        string
	Timeout        time.Duration
	Token          string
	Home           string
	SignalFanOut   int
	SignalRPS      float64
	RedisURL       string
	RevalidateCron string
	Log            LogConfig
}

// LoadEnvFile loads variables from a .env file when present; existing variables win
func LoadEnvFile(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			log.Warnf("Failed to load %s: %v", p, err)
		}
	}
}

// Load reads service configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "ats"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "db/migrations"),
		},
		Kafka: KafkaConfig{
			Brokers:       getEnvList("KAFKA_BROKERS", "localhost:9092"),
			EventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "strategy-events"),
			SignalsTopic:  getEnv("KAFKA_SIGNALS_TOPIC", "strategy-signals"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "atsd"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
			TTL: getEnvDuration("REDIS_SIGNAL_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TTL", 12*time.Hour),
		},
		Log: loadLogConfig(),
	}
}

// LoadClient reads client configuration from environment variables
func LoadClient() *ClientConfig {
	return &ClientConfig{
		APIBase:        getEnv("ATS_API_BASE", "http://localhost:8000"),
		Timeout:        getEnvDuration("ATS_TIMEOUT", 30*time.Second),
		Token:          getEnv("ATS_TOKEN", ""),
		Home:           getEnv("ATS_HOME", defaultHome()),
		SignalFanOut:   getEnvInt("ATS_SIGNAL_FANOUT", 4),
		SignalRPS:      getEnvFloat("ATS_SIGNAL_RPS", 10),
		RedisURL:       getEnv("REDIS_URL", ""),
		RevalidateCron: getEnv("ATS_REVALIDATE_SCHEDULE", "@every 5m"),
		Log:            loadLogConfig(),
	}
}

// ConnectionString returns the PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return "postgres://" + d.User + ":" + d.Password + "@" + d.Host + ":" + d.Port + "/" + d.DBName + "?sslmode=" + d.SSLMode
}

// Address returns the host:port the HTTP server listens on
func (s *ServerConfig) Address() string {
	return s.Host + ":" + s.Port
}

// SetupLogging applies the level and format to the standard logrus logger
func SetupLogging(c LogConfig) {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		log.Warnf("Unknown log level %q, using info", c.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if strings.EqualFold(c.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnv("LOG_LEVEL", "info"),
		Format: getEnv("LOG_FORMAT", "text"),
	}
}

func defaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ats"
	}
	return filepath.Join(home, ".ats")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key, defaultValue string) []string {
	var out []string
	for _, v := range strings.Split(getEnv(key, defaultValue), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
