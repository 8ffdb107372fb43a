package config

import "github.com/rcliao/ddltrack/internal/domain"

// Config represents the full ddltrack configuration
type Config struct {
	Storage   StorageConfig           `yaml:"storage" mapstructure:"storage"`
	HTTP      HTTPConfig              `yaml:"http" mapstructure:"http"`
	Reminders domain.ReminderSettings `yaml:"reminders" mapstructure:"reminders"`
	Log       LogConfig               `yaml:"log" mapstructure:"log"`
}

// StorageConfig selects where and how the task collection is persisted
type StorageConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"`
	Lock   bool   `yaml:"lock" mapstructure:"lock"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowedOrigins" mapstructure:"allowedOrigins"`
}

type LogConfig struct {
	// Quiet discards log output
	Quiet bool `yaml:"quiet" mapstructure:"quiet"`
}
