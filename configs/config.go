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

type OAuthClient struct {
	ClientID     string
	ClientSecret string
}

type OpenAI struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
}

type Dispatch struct {
	PublishTimeout   time.Duration
	Concurrency      int
	QueueConcurrency int
}

type Config struct {
	Instagram   OAuthClient
	Tiktok      OAuthClient
	Google      OAuthClient
	Facebook    OAuthClient
	Linkedin    OAuthClient
	PostgresURI string
	RedisURI    string
	FrontendURL string
	PublicURL   string
	ListenAddr  string
	R2          R2
	OpenAI      OpenAI
	Dispatch    Dispatch
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		Instagram: OAuthClient{
			ClientID:     getEnv("INSTAGRAM_CLIENT_ID", ""),
			ClientSecret: getEnv("INSTAGRAM_CLIENT_SECRET", ""),
		},
		Tiktok: OAuthClient{
			ClientID:     getEnv("TIKTOK_CLIENT_KEY", ""),
			ClientSecret: getEnv("TIKTOK_CLIENT_SECRET", ""),
		},
		Google: OAuthClient{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		},
		Facebook: OAuthClient{
			ClientID:     getEnv("FACEBOOK_CLIENT_ID", ""),
			ClientSecret: getEnv("FACEBOOK_CLIENT_SECRET", ""),
		},
		Linkedin: OAuthClient{
			ClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
			ClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		},
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		PublicURL:   getEnv("PUBLIC_URL", "http://localhost:3000"),
		ListenAddr:  getEnv("LISTEN_ADDR", ":3000"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		OpenAI: OpenAI{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			BaseURL:    getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			TextModel:  getEnv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
			ImageModel: getEnv("OPENAI_IMAGE_MODEL", "dall-e-3"),
		},
		Dispatch: Dispatch{
			PublishTimeout:   getEnvDuration("PUBLISH_TIMEOUT", 90*time.Second),
			Concurrency:      getEnvInt("DISPATCH_CONCURRENCY", 10),
			QueueConcurrency: getEnvInt("QUEUE_CONCURRENCY", 10),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postpilot_session"),
	}
}

// RedirectURI is the OAuth callback registered for a platform.
func (c *Config) RedirectURI(platform string) string {
	return c.PublicURL + "/auth/" + platform + "/callback"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
