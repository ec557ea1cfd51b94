// Package config centralizes environment configuration for the vodworks
// services. Every tunable is read once by Load; call sites receive values
// through the Config struct instead of reading the environment themselves.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds the full configuration for API and worker processes.
// Fields that only apply to one process are simply ignored by the other.
type Config struct {
	// HTTP API
	HTTPPort           string
	CORSAllowedOrigins []string
	RateLimitPerMinute int

	// Shared infrastructure
	DatabaseURL string
	RedisAddr   string
	QueueName   string

	// Logging
	LogLevel  string
	LogFormat string
	LogSource bool

	// Auth
	JWTSecret string

	// Object storage
	StorageProvider    string
	StorageLocalRoot   string
	GCSBucket          string
	GCSCredentialsFile string
	GDriveClientID     string
	GDriveClientSecret string
	GDriveRefreshToken string
	GDriveFolderID     string

	// Worker pipeline
	WorkerConcurrency int
	EncodeConcurrency int
	WorkDir           string
}

// Load reads the configuration from the environment, applying defaults.
// Required values (DATABASE_URL, REDIS_ADDR, JWT_SECRET for the API) are left
// empty when unset; each process validates the subset it needs at startup.
func Load() *Config {
	return &Config{
		HTTPPort:           envStr("HTTP_PORT", "8080"),
		CORSAllowedOrigins: envCSV("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:8081"}),
		RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 100),

		DatabaseURL: envStr("DATABASE_URL", ""),
		RedisAddr:   envStr("REDIS_ADDR", ""),
		QueueName:   envStr("TRANSCODE_QUEUE_NAME", "vodworks:transcode"),

		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),
		LogSource: envBool("LOG_SOURCE", false),

		JWTSecret: envStr("JWT_SECRET", ""),

		StorageProvider:    envStr("STORAGE_PROVIDER", "gcs"),
		StorageLocalRoot:   envStr("STORAGE_LOCAL_ROOT", "/data"),
		GCSBucket:          envStr("GCS_BUCKET", ""),
		GCSCredentialsFile: envStr("GCS_CREDENTIALS_FILE", ""),
		GDriveClientID:     envStr("GDRIVE_CLIENT_ID", ""),
		GDriveClientSecret: envStr("GDRIVE_CLIENT_SECRET", ""),
		GDriveRefreshToken: envStr("GDRIVE_REFRESH_TOKEN", ""),
		GDriveFolderID:     envStr("GDRIVE_FOLDER_ID", ""),

		WorkerConcurrency: envInt("WORKER_CONCURRENCY", 2),
		EncodeConcurrency: envInt("ENCODE_CONCURRENCY", 4),
		WorkDir:           envStr("WORK_DIR", filepath.Join(os.TempDir(), "vodworks")),
	}
}

func envStr(k, def string) string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	return v
}

func envInt(k string, def int) int {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// envBool reads an env var as bool. If empty or invalid, returns def.
// strconv.ParseBool accepts: 1,t,T,TRUE,true,True,0,f,F,FALSE,false,False.
func envBool(k string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envCSV(key string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
