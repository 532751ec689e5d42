package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Scheduler struct {
	PollInterval     time.Duration
	BatchSize        int
	Workers          int
	PublishTimeout   time.Duration
	BaseRetryDelay   time.Duration
	MaxRetryInterval time.Duration
	TokenMargin      time.Duration
	AnalyticsRefresh time.Duration
}

type Config struct {
	FacebookAppID         string
	FacebookAppSecret     string
	InstagramClientID     string
	InstagramClientSecret string
	LinkedinClientID      string
	LinkedinClientSecret  string
	TwitterClientID       string
	TwitterClientSecret   string
	PostgresURI           string
	RedisURI              string
	FrontendURL           string
	R2                    R2
	Scheduler             Scheduler
	SecretKey             string
	CookieName            string
}

func LoadConfig() *Config {
	return &Config{
		FacebookAppID:         getEnv("FACEBOOK_APP_ID", ""),
		FacebookAppSecret:     getEnv("FACEBOOK_APP_SECRET", ""),
		InstagramClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
		InstagramClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		LinkedinClientID:      getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedinClientSecret:  getEnv("LINKEDIN_CLIENT_SECRET", ""),
		TwitterClientID:       getEnv("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret:   getEnv("TWITTER_CLIENT_SECRET", ""),
		PostgresURI:           getEnv("POSTGRES_URI", ""),
		RedisURI:              getEnv("REDIS_URI", ""),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Scheduler: Scheduler{
			PollInterval:     getEnvDuration("SCHEDULER_POLL_INTERVAL", 30*time.Second),
			BatchSize:        getEnvInt("SCHEDULER_BATCH_SIZE", 50),
			Workers:          getEnvInt("SCHEDULER_WORKERS", 10),
			PublishTimeout:   getEnvDuration("PUBLISH_TIMEOUT", 60*time.Second),
			BaseRetryDelay:   getEnvDuration("BASE_RETRY_DELAY", 1*time.Minute),
			MaxRetryInterval: getEnvDuration("MAX_RETRY_INTERVAL", 1*time.Hour),
			TokenMargin:      getEnvDuration("TOKEN_EXPIRY_MARGIN", 10*time.Minute),
			AnalyticsRefresh: getEnvDuration("ANALYTICS_REFRESH_INTERVAL", 6*time.Hour),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
