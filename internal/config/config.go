package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	GinMode  string
	LogLevel string

	DBDriver string // mysql / postgres
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTAccessSecret  string
	JWTRefreshSecret string

	KafkaBrokers []string
	KafkaTopic   string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	OutboxInterval    time.Duration
	ReconcileInterval time.Duration

	CORSOrigins []string
}

// Load 读取 .env（不存在时忽略），再从环境变量取值
func Load(files ...string) *Config {
	_ = godotenv.Load(files...)

	return &Config{
		AppPort:  Get("APP_PORT", "8080"),
		GinMode:  Get("GIN_MODE", "debug"),
		LogLevel: Get("LOG_LEVEL", "info"),

		DBDriver: Get("DB_DRIVER", "mysql"),
		DBDSN:    Get("DB_DSN", "user:password@tcp(127.0.0.1:3306)/social?charset=utf8mb4&parseTime=True&loc=Local"),

		RedisAddr:     Get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: Get("REDIS_PASSWORD", ""),
		RedisDB:       GetInt("REDIS_DB", 0),

		JWTAccessSecret:  Get("JWT_ACCESS_SECRET", "secret-key"),
		JWTRefreshSecret: Get("JWT_REFRESH_SECRET", "refresh-key"),

		KafkaBrokers: GetList("KAFKA_BROKERS"),
		KafkaTopic:   Get("KAFKA_TOPIC", "social.notifications"),

		SMTPHost:     Get("SMTP_HOST", ""),
		SMTPPort:     GetInt("SMTP_PORT", 587),
		SMTPUsername: Get("SMTP_USERNAME", ""),
		SMTPPassword: Get("SMTP_PASSWORD", ""),
		SMTPFrom:     Get("SMTP_FROM", ""),

		OutboxInterval:    GetDuration("OUTBOX_INTERVAL", time.Second),
		ReconcileInterval: GetDuration("RECONCILE_INTERVAL", 5*time.Minute),

		CORSOrigins: GetList("CORS_ORIGINS"),
	}
}

// Get returns the environment variable or def when unset
func Get(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func GetInt(key string, def int) int {
	v, err := strconv.Atoi(Get(key, ""))
	if err != nil {
		return def
	}
	return v
}

func GetDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(Get(key, ""))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// GetList 逗号分隔
func GetList(key string) []string {
	raw := Get(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
