package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/rcliao/ddltrack/internal/domain"
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Path:   "tasks.json",
			Format: "json",
			Lock:   true,
		},
		HTTP: HTTPConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
		Reminders: domain.ReminderSettings{
			Enabled:     true,
			DaysBefore:  1,
			HoursBefore: 3,
		},
	}
}

func setDefaults(v *viper.Viper) {
	cfg := DefaultConfig()
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.format", cfg.Storage.Format)
	v.SetDefault("storage.lock", cfg.Storage.Lock)
	v.SetDefault("http.addr", cfg.HTTP.Addr)
	v.SetDefault("http.allowedOrigins", cfg.HTTP.AllowedOrigins)
	v.SetDefault("reminders.enabled", cfg.Reminders.Enabled)
	v.SetDefault("reminders.daysBefore", cfg.Reminders.DaysBefore)
	v.SetDefault("reminders.hoursBefore", cfg.Reminders.HoursBefore)
	v.SetDefault("log.quiet", cfg.Log.Quiet)
}

const defaultConfigContent = `# ddltrack configuration

storage:
  path: tasks.json
  format: json   # "json" or "yaml"
  lock: true     # lock <path>.lock around every save

http:
  addr: ":8080"
  allowedOrigins:
    - "*"

# Deadline reminders fire for pending tasks due within daysBefore + hoursBefore
reminders:
  enabled: true
  daysBefore: 1
  hoursBefore: 3

log:
  quiet: false
`

// WriteDefault writes the default configuration to a file
func WriteDefault(path string) error {
	return os.WriteFile(path, []byte(defaultConfigContent), 0644)
}
