package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"timer-bot/model"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the environment and an optional
// data/config.yaml. Environment variables win over file values.
func Load() (*model.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: .env file not found, relying on environment variables")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("data")
	v.AddConfigPath(".")

	v.SetDefault("database_path", "data/timers.db")
	v.SetDefault("tick_interval", 30*time.Second)
	v.SetDefault("report_cron", "0 9 * * *")
	v.SetDefault("member_cache_ttl", 10*time.Minute)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{
		"bot_token", "app_id", "log_channel_id", "database_path",
		"tick_interval", "report_cron", "member_cache_ttl",
		"developer_user_ids", "super_admin_role_ids",
	} {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("Warning: config.yaml not found, relying on environment only")
	}

	cfg := &model.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if cfg.AppID == "" {
		return nil, fmt.Errorf("APP_ID is not set")
	}
	if cfg.LogChannelID == "" {
		log.Println("Warning: LOG_CHANNEL_ID not set, operational logging will be disabled")
	}
	if cfg.ServerConfigs == nil {
		cfg.ServerConfigs = make(map[string]model.ServerConfig)
	}
	return cfg, nil
}
