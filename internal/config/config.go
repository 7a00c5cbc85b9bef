package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	JWTSecret    string
	TokenTTL     time.Duration
	CookieName   string
	CookieMaxAge time.Duration
	CookieSecure bool

	MediaBackend string // "disk" or "s3"
	UploadDir    string
	S3Endpoint   string
	S3Region     string
	S3Bucket     string
	S3AccessKey  string
	S3SecretKey  string

	AdminName     string
	AdminEmail    string
	AdminPassword string

	CORSOrigins []string

	LoginRateLimit  int
	LoginRateWindow time.Duration

	OTLPEndpoint string
}

func Load() Config {
	// .env is optional, real env always wins
	_ = godotenv.Load()

	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 30*time.Second),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
		// token expiry is independent of the cookie max-age
		TokenTTL:     getEnvDuration("TOKEN_TTL", 10*time.Hour),
		CookieName:   getEnv("COOKIE_NAME", "access_token"),
		CookieMaxAge: getEnvDuration("COOKIE_MAX_AGE", 24*time.Hour),
		CookieSecure: getEnv("APP_ENV", "dev") == "prod",

		MediaBackend: getEnv("MEDIA_BACKEND", "disk"),
		UploadDir:    getEnv("UPLOAD_DIR", "./public/uploads"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Bucket:     getEnv("S3_BUCKET", "newsroom-media"),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),

		AdminName:     getEnv("ADMIN_NAME", "Admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "")),

		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", time.Minute),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "newsroom")
	pass := getEnv("DB_PASSWORD", "newsroom")
	name := getEnv("DB_NAME", "newsroom")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}

	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return d
	}
	return fallback
}
