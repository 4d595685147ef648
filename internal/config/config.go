package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	BlobBasePath string // media files root
	MediaBaseURL string // public prefix for media URLs
	MaxUploadMB  int64

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	BcryptCost       int

	AdminEmail    string
	AdminPassHash string // bcrypt

	CORSOrigins []string

	LogLevel      string
	EnableMetrics bool
}

// Load reads an optional .env file and then the environment.
func Load(files ...string) Config {
	_ = godotenv.Load(files...) // missing .env is fine
	return FromEnv()
}

func FromEnv() Config {
	mode := Mode(envOr("MODE", string(ModeDevelopment)))
	addr := envOr("HTTP_ADDR", ":8080")
	pub := strings.TrimSuffix(envOr("PUBLIC_URL", "http://localhost"+addr), "/")
	return Config{
		Mode:      mode,
		HTTPAddr:  addr,
		PublicURL: pub,

		DBDriver: envOr("DB_DRIVER", "sqlite"),
		DBDSN:    envOr("DB_DSN", ""),

		BlobBasePath: envOr("BLOB_BASE_PATH", "./data"),
		MediaBaseURL: envOr("MEDIA_BASE_URL", pub+"/media"),
		MaxUploadMB:  int64(envInt("MAX_UPLOAD_MB", 50)),

		JWTAccessSecret:  envOr("JWT_ACCESS_SECRET", "dev-access-secret"),
		JWTRefreshSecret: envOr("JWT_REFRESH_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:   envDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:  envDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		BcryptCost:       envInt("BCRYPT_COST", 12),

		AdminEmail:    envOr("ADMIN_EMAIL", "admin@courseware.local"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),

		CORSOrigins: csvOr("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173"),

		LogLevel:      envOr("LOG_LEVEL", "info"),
		EnableMetrics: envBool("ENABLE_METRICS", true),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}

func envInt(k string, def int) int {
	n, err := strconv.Atoi(os.Getenv(k))
	if err != nil {
		return def
	}
	return n
}

func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
