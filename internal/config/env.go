package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string

	// Optional archive storage; S3 upload is skipped when the
	// credentials or bucket are absent.
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string

	// Optional preview cache; empty address disables caching.
	RedisAddr string
	RedisDB   int

	// Engine tunables.
	ScanBufferKB       int // size of each read from the byte source
	MaxRetainKB        int // retained-buffer ceiling inside the scanner
	ContextWindowBytes int // bytes kept around a match for metrics lookup
	MaxUploadMB        int // multipart memory/size limit
}

// LoadConfig loads the environment variables and returns the config.
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", ""),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		RedisDB:   getEnvInt("REDIS_DB", 0),

		ScanBufferKB:       getEnvInt("SCAN_BUFFER_KB", 64),
		MaxRetainKB:        getEnvInt("MAX_RETAIN_KB", 1024),
		ContextWindowBytes: getEnvInt("CONTEXT_WINDOW_BYTES", 2048),
		MaxUploadMB:        getEnvInt("MAX_UPLOAD_MB", 256),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}
