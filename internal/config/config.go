package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port     string
	DBDriver string // sqlite | pgx
	DBDSN    string

	StorageDriver string // local | s3
	MediaDir      string
	S3Bucket      string
	S3Region      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int

	JWTSecret string
	TokenTTL  time.Duration

	AppURL   string
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	MailFrom string

	RedisAddr string
	RedisDB   int

	AdminEmail    string
	AdminPassword string

	BodyLimitMB int
}

func env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q is not a number, using %d", key, v, def)
		return def
	}
	return n
}

func Load() Config {
	ttl, err := time.ParseDuration(env("TOKEN_TTL", "24h"))
	if err != nil {
		log.Printf("[config] bad TOKEN_TTL, using 24h: %v", err)
		ttl = 24 * time.Hour
	}

	cfg := Config{
		Port:     env("PORT", "8080"),
		DBDriver: env("DB_DRIVER", "sqlite"),
		DBDSN:    env("DB_DSN", "marketadmin.db"), // sqlite file in project root

		StorageDriver: env("STORAGE_DRIVER", "local"),
		MediaDir:      env("MEDIA_DIR", "./storage/public"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3Region:      env("S3_REGION", "us-east-1"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:   os.Getenv("S3_SECRET_ACCESS_KEY"),

		LogFile:       env("LOG_FILE", "./marketadmin.log"),
		LogMaxSizeMB:  envInt("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: envInt("LOG_MAX_BACKUPS", 5),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  ttl,

		AppURL:   env("APP_URL", "http://localhost:8080"),
		SMTPHost: os.Getenv("SMTP_HOST"),
		SMTPPort: env("SMTP_PORT", "587"),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),
		MailFrom: env("MAIL_FROM", "no-reply@marketadmin.local"),

		RedisAddr: os.Getenv("REDIS_ADDR"),
		RedisDB:   envInt("REDIS_DB", 0),

		AdminEmail:    env("ADMIN_EMAIL", "admin@marketadmin.local"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		BodyLimitMB: envInt("BODY_LIMIT_MB", 4),
	}
	if cfg.JWTSecret == "" {
		log.Printf("[config] JWT_SECRET not set; tokens will not survive a restart")
	}
	log.Printf("[config] PORT=%s DB_DRIVER=%s STORAGE_DRIVER=%s MEDIA_DIR=%s LOG_FILE=%s REDIS_ADDR=%s SMTP_HOST=%s",
		cfg.Port, cfg.DBDriver, cfg.StorageDriver, cfg.MediaDir, cfg.LogFile, cfg.RedisAddr, cfg.SMTPHost)
	return cfg
}
