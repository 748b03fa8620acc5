package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds everything the dashboard and CLI need at start-up.
type Config struct {
	API       APIConfig
	Auth      AuthConfig
	Dashboard DashboardConfig
	Mongo     MongoConfig
	MQTT      MQTTConfig
	Export    ExportConfig
	Log       LogConfig
	// SnapshotCachePath is the SQLite file holding the last good vehicle list.
	// Empty disables the cache.
	SnapshotCachePath string
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type AuthConfig struct {
	JWTSecret        string
	TokenExpiry      time.Duration
	ServiceTokenRole string
	ManagementPIN    string
}

type DashboardConfig struct {
	Port               string
	RequireAuth        bool
	RateLimitPerMinute int
	DefaultLocation    string
}

type MongoConfig struct {
	URI      string
	Database string
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

type ExportConfig struct {
	Dir        string
	DateLayout string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Failed to read .env file")
	}

	return Config{
		API: APIConfig{
			BaseURL: strings.TrimRight(getenv("API_BASE_URL", "http://localhost:5000"), "/"),
			Timeout: getDuration("API_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:        getenv("JWT_SECRET", "default-secret-key-change-in-production"),
			TokenExpiry:      getDuration("JWT_EXPIRY", 24*time.Hour),
			ServiceTokenRole: getenv("SERVICE_TOKEN_ROLE", ""),
			ManagementPIN:    getenv("MANAGEMENT_PIN", "1234"),
		},
		Dashboard: DashboardConfig{
			Port:               getenv("PORT", "8080"),
			RequireAuth:        getBool("DASHBOARD_REQUIRE_AUTH", false),
			RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 60),
			DefaultLocation:    getenv("DEFAULT_LOCATION", "150 Peabody Place"),
		},
		Mongo: MongoConfig{
			URI:      os.Getenv("MONGO_URI"),
			Database: getenv("MONGO_DB", "fleet"),
		},
		MQTT: MQTTConfig{
			Broker:      os.Getenv("MQTT_BROKER"),
			ClientID:    os.Getenv("MQTT_CLIENT_ID"),
			TopicPrefix: getenv("MQTT_TOPIC_PREFIX", "vault/fleet"),
		},
		Export: ExportConfig{
			Dir:        getenv("EXPORT_DIR", "."),
			DateLayout: getenv("EXPORT_DATE_LAYOUT", "1/2/2006"),
		},
		Log: LogConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
		},
		SnapshotCachePath: os.Getenv("SNAPSHOT_CACHE_PATH"),
	}
}

// ConfigureLogging applies the log level and formatter to the global logger.
func (c LogConfig) ConfigureLogging() {
	level, err := log.ParseLevel(c.Level)
	if err != nil {
		log.WithField("level", c.Level).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.WithField("key", key).Warn("Invalid integer in environment, using default")
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		log.WithField("key", key).Warn("Invalid boolean in environment, using default")
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.WithField("key", key).Warn("Invalid duration in environment, using default")
	}
	return def
}
