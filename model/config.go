package model

import "time"

// ServerConfig holds per-guild settings.
type ServerConfig struct {
	Name            string   `mapstructure:"name"`
	GuildID         string   `mapstructure:"guild_id"`
	Enable          bool     `mapstructure:"enable"`
	AdminRoleIDs    []string `mapstructure:"admin_role_ids"`
	WarnChannelID   string   `mapstructure:"warn_channel_id"`
	ReportChannelID string   `mapstructure:"report_channel_id"`
}

// Config holds the application configuration.
type Config struct {
	BotToken          string                  `mapstructure:"bot_token"`
	AppID             string                  `mapstructure:"app_id"`
	LogChannelID      string                  `mapstructure:"log_channel_id"`
	DatabasePath      string                  `mapstructure:"database_path"`
	TickInterval      time.Duration           `mapstructure:"tick_interval"`
	ReportCron        string                  `mapstructure:"report_cron"`
	MemberCacheTTL    time.Duration           `mapstructure:"member_cache_ttl"`
	DeveloperUserIDs  []string                `mapstructure:"developer_user_ids"`
	SuperAdminRoleIDs []string                `mapstructure:"super_admin_role_ids"`
	ServerConfigs     map[string]ServerConfig `mapstructure:"servers"`
}
