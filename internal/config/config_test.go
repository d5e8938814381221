package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLoadDefaults verifies defaults apply when nothing is set
func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_PORT", "DB_NAME", "KAFKA_BROKERS", "REDIS_SIGNAL_TTL", "LOG_LEVEL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "ats", cfg.Database.DBName)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "strategy-events", cfg.Kafka.EventsTopic)
	assert.Equal(t, "strategy-signals", cfg.Kafka.SignalsTopic)
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

// TestLoadOverrides verifies environment values win and lists are split
func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_USER", "ats")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "trading")
	t.Setenv("DB_SSLMODE", "require")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_TTL", "30m")

	cfg := Load()
	assert.Equal(t, "postgres://ats:secret@db:5433/trading?sslmode=require", cfg.Database.ConnectionString())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
}

// TestLoadClient verifies numeric client settings fall back on bad input
func TestLoadClient(t *testing.T) {
	t.Setenv("ATS_API_BASE", "https://ats.example.com/api")
	t.Setenv("ATS_SIGNAL_FANOUT", "not-a-number")
	t.Setenv("ATS_SIGNAL_RPS", "2.5")
	t.Setenv("ATS_TIMEOUT", "5s")
	t.Setenv("ATS_HOME", "/tmp/ats-home")

	cfg := LoadClient()
	assert.Equal(t, "https://ats.example.com/api", cfg.APIBase)
	assert.Equal(t, 4, cfg.SignalFanOut)
	assert.Equal(t, 2.5, cfg.SignalRPS)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "/tmp/ats-home", cfg.Home)
	assert.Equal(t, "@every 5m", cfg.RevalidateCron)
}

// TestLoadEnvFile verifies .env values fill unset variables only
func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ATS_TEST_FROM_FILE=file\nATS_TEST_PRESET=file\n"), 0o600))

	t.Setenv("ATS_TEST_PRESET", "env")
	t.Setenv("ATS_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("ATS_TEST_FROM_FILE"))

	LoadEnvFile(path, filepath.Join(dir, "missing.env"))
	assert.Equal(t, "file", os.Getenv("ATS_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("ATS_TEST_PRESET"))
}

// TestSetupLogging verifies level parsing and the json formatter switch
func TestSetupLogging(t *testing.T) {
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(log.StandardLogger().Formatter)

	SetupLogging(LogConfig{Level: "debug", Format: "json"})
	assert.Equal(t, log.DebugLevel, log.GetLevel())
	assert.IsType(t, &log.JSONFormatter{}, log.StandardLogger().Formatter)

	SetupLogging(LogConfig{Level: "loud", Format: "text"})
	assert.Equal(t, log.InfoLevel, log.GetLevel())
	assert.IsType(t, &log.TextFormatter{}, log.StandardLogger().Formatter)
}
