package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load env from .env
	godotenv.Load()
}

// Settings is the process configuration, read once from the environment.
type Settings struct {
	Port               string
	GoEnv              string
	UploadDir          string
	MaxUploadBytes     int64
	CORSAllowedOrigins []string

	ReferenceBaseURL  string
	ReferenceUser     string
	ReferencePassword string
	ReferenceTimeout  time.Duration

	AIProvider string
	AIAPIKey   string
	AIModel    string
	AITimeout  time.Duration

	RedisAddress  string
	IssueCacheTTL time.Duration

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	// DBAutoMigrate creates the decisions table on connect.
	DBAutoMigrate bool

	PubSubProjectID   string
	PubSubExportTopic string
	GCSBucket         string

	DefaultPhoneRegion string
}

// DatabaseConfigured reports whether the decision audit should go to MySQL.
func (s Settings) DatabaseConfigured() bool {
	return s.DBHost != "" && s.DBName != ""
}

func LoadSettings() Settings {
	return Settings{
		Port:               stringFromEnv("PORT", "8080"),
		GoEnv:              stringFromEnv("GO_ENV", ""),
		UploadDir:          stringFromEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:     int64(intFromEnv("MAX_UPLOAD_MB", 20)) << 20,
		CORSAllowedOrigins: listFromEnv("CORS_ALLOWED_ORIGINS"),

		ReferenceBaseURL:  stringFromEnv("REFERENCE_BASE_URL", ""),
		ReferenceUser:     stringFromEnv("REFERENCE_USER", ""),
		ReferencePassword: os.Getenv("REFERENCE_PASSWORD"),
		ReferenceTimeout:  durationFromEnv("REFERENCE_TIMEOUT_SECONDS", 15, time.Second),

		AIProvider: strings.ToLower(stringFromEnv("AI_PROVIDER", "anthropic")),
		AIAPIKey:   stringFromEnv("AI_API_KEY", ""),
		AIModel:    stringFromEnv("AI_MODEL", ""),
		AITimeout:  durationFromEnv("AI_TIMEOUT_SECONDS", 60, time.Second),

		RedisAddress:  stringFromEnv("REDIS_ADDRESS", ""),
		IssueCacheTTL: durationFromEnv("ISSUE_CACHE_TTL_MINUTES", 60, time.Minute),

		DBUser:        stringFromEnv("DB_USER", ""),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBHost:        stringFromEnv("DB_HOST", ""),
		DBPort:        stringFromEnv("DB_PORT", "3306"),
		DBName:        stringFromEnv("DB_NAME", ""),
		DBAutoMigrate: boolFromEnv("DB_AUTO_MIGRATE", true),

		PubSubProjectID:   getPubSubProjectID(),
		PubSubExportTopic: stringFromEnv("PUBSUB_EXPORT_TOPIC", ""),
		GCSBucket:         stringFromEnv("GCS_BUCKET", ""),

		DefaultPhoneRegion: strings.ToUpper(stringFromEnv("DEFAULT_PHONE_REGION", "US")),
	}
}

func stringFromEnv(key string, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func boolFromEnv(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func durationFromEnv(key string, def int, unit time.Duration) time.Duration {
	return time.Duration(intFromEnv(key, def)) * unit
}

func listFromEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// retryDelay is the capped exponential backoff used by the connect loops.
func retryDelay(attempt int) time.Duration {
	sleep := time.Second * time.Duration(1<<min(attempt, 5))
	if sleep > 30*time.Second {
		sleep = 30 * time.Second
	}
	return sleep
}
