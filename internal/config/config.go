package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	OpenAI  OpenAIConfig
	Session SessionConfig
	Share   ShareConfig
	R2      R2Config

	DatabaseURL           string
	DefaultOutputLanguage string
}

type ServerConfig struct {
	Host string
	Port string
}

type OpenAIConfig struct {
	APIKey               string
	Model                string
	QuickSuggestionModel string
	ExtractionTimeout    time.Duration
	SuggestionTimeout    time.Duration
}

type SessionConfig struct {
	TTL        time.Duration
	RetryLimit int
}

type ShareConfig struct {
	TTL time.Duration
}

type R2Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	BucketName    string
	PublicBaseURL string
}

// Enabled reports whether the optional photo archive is configured.
func (c R2Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != "" && c.SecretKey != "" && c.BucketName != ""
}

func Load() (*Config, error) {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("OPENAI_MODEL", "gpt-5-mini")
	viper.SetDefault("QUICK_SUGGESTION_MODEL", "gpt-5-nano")
	viper.SetDefault("QUICK_SUGGESTION_TIMEOUT_SECONDS", 12)
	viper.SetDefault("EXTRACTION_TIMEOUT_SECONDS", 120)
	viper.SetDefault("DEFAULT_OUTPUT_LANGUAGE", "English")
	viper.SetDefault("SHARE_TOKEN_TTL_MINUTES", 240) // 4 hours default
	viper.SetDefault("UPLOAD_SESSION_TTL_MINUTES", 60)
	viper.SetDefault("UPLOAD_SESSION_RETRY_LIMIT", 5)

	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("SERVER_HOST"),
			Port: viper.GetString("PORT"),
		},
		OpenAI: OpenAIConfig{
			APIKey:               viper.GetString("OPENAI_API_KEY"),
			Model:                viper.GetString("OPENAI_MODEL"),
			QuickSuggestionModel: viper.GetString("QUICK_SUGGESTION_MODEL"),
			ExtractionTimeout:    time.Duration(viper.GetInt("EXTRACTION_TIMEOUT_SECONDS")) * time.Second,
			SuggestionTimeout:    time.Duration(viper.GetInt("QUICK_SUGGESTION_TIMEOUT_SECONDS")) * time.Second,
		},
		Session: SessionConfig{
			TTL:        time.Duration(viper.GetInt("UPLOAD_SESSION_TTL_MINUTES")) * time.Minute,
			RetryLimit: viper.GetInt("UPLOAD_SESSION_RETRY_LIMIT"),
		},
		Share: ShareConfig{
			TTL: time.Duration(viper.GetInt("SHARE_TOKEN_TTL_MINUTES")) * time.Minute,
		},
		R2: R2Config{
			Endpoint:      viper.GetString("R2_ENDPOINT"),
			AccessKey:     viper.GetString("R2_ACCESS_KEY"),
			SecretKey:     viper.GetString("R2_SECRET_KEY"),
			BucketName:    viper.GetString("R2_BUCKET_NAME"),
			PublicBaseURL: viper.GetString("R2_PUBLIC_BASE_URL"),
		},
		DatabaseURL:           viper.GetString("DATABASE_URL"),
		DefaultOutputLanguage: viper.GetString("DEFAULT_OUTPUT_LANGUAGE"),
	}

	if cfg.Session.TTL < time.Minute {
		cfg.Session.TTL = time.Minute
	}

	return cfg, nil
}

// Validate checks the keys the process cannot run without.
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return errors.New("OPENAI_API_KEY is required to process menus")
	}
	if c.OpenAI.Model == "" {
		return errors.New("OPENAI_MODEL must not be empty")
	}
	return nil
}
