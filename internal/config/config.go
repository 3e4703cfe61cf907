package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	Env         string
	AppSecret   string
	DatabaseURL string
	JWTExpiry   time.Duration
	Port        string
	LogLevel    string

	// TMDB 目录服务
	TMDBAPIKey       string
	TMDBToken        string
	TMDBBaseURL      string
	TMDBImageBaseURL string
	TMDBLanguage     string
	TMDBTimeout      time.Duration
	TMDBRateLimit    float64

	// Redis（可选，留空则使用进程内缓存）
	RedisAddr     string
	RedisPassword string

	// 孤儿数据清理任务
	CleanupCron string

	// 允许跨域的来源，逗号分隔，留空允许任意来源
	CORSOrigins []string
}

// Load 加载配置
func Load() *Config {
	expiryHours, _ := strconv.Atoi(getEnv("JWT_EXPIRY_HOURS", "72"))
	tmdbTimeout, _ := strconv.Atoi(getEnv("TMDB_TIMEOUT_SECONDS", "10"))
	if tmdbTimeout <= 0 {
		tmdbTimeout = 10
	}
	rateLimit, err := strconv.ParseFloat(getEnv("TMDB_RATE_LIMIT", "20"), 64)
	if err != nil || rateLimit <= 0 {
		rateLimit = 20
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		dbUser := getEnv("DB_USER", "postgres")
		dbPass := getEnv("DB_PASSWORD", "postgres")
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbName := getEnv("DB_NAME", "moovie")
		dbSSL := getEnv("DB_SSLMODE", "disable")

		dbURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)
	}

	appSecret := getEnv("APP_SECRET", getEnv("JWT_SECRET", "your-secret-key-change-in-production"))

	if getEnv("APP_ENV", "development") == "production" && appSecret == "your-secret-key-change-in-production" {
		fmt.Println("【严重警告】生产环境正在使用默认密钥！请立即设置 APP_SECRET 环境变量。")
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		AppSecret:   appSecret,
		DatabaseURL: dbURL,
		JWTExpiry:   time.Duration(expiryHours) * time.Hour,
		Port:        getEnv("PORT", "5005"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		TMDBAPIKey:       os.Getenv("TMDB_API_KEY"),
		TMDBToken:        os.Getenv("TMDB_TOKEN"),
		TMDBBaseURL:      getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBImageBaseURL: getEnv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p"),
		TMDBLanguage:     getEnv("TMDB_LANGUAGE", "es-ES"),
		TMDBTimeout:      time.Duration(tmdbTimeout) * time.Second,
		TMDBRateLimit:    rateLimit,

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		CleanupCron: getEnv("CLEANUP_CRON", "0 3 * * *"),
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList 解析逗号分隔的列表，忽略空项
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
