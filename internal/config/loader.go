package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rcliao/ddltrack/internal/storage"
)

const (
	dirName   = ".ddltrack"
	fileName  = "config.yaml"
	envPrefix = "DDLTRACK"
)

// Options locate the configuration sources. Empty directories fall back to
// the user home and the working directory.
type Options struct {
	// ConfigFile replaces the global and project files when set; it must exist.
	ConfigFile string
	HomeDir    string
	WorkDir    string
}

// Load merges defaults, the global file, the project file and DDLTRACK_*
// environment variables, later sources winning.
func Load(opts Options) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		if err := loadFile(v, opts.ConfigFile); err != nil {
			return nil, err
		}
	} else {
		for _, path := range searchPaths(opts) {
			if _, err := os.Stat(path); os.IsNotExist(err) {
				continue
			}
			if err := loadFile(v, path); err != nil {
				return nil, err
			}
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return nil
}

func searchPaths(opts Options) []string {
	var paths []string

	home := opts.HomeDir
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home != "" {
		paths = append(paths, filepath.Join(home, dirName, fileName))
	}

	cwd := opts.WorkDir
	if cwd == "" {
		cwd, _ = os.Getwd()
	}
	if cwd != "" {
		project := filepath.Join(cwd, dirName, fileName)
		if len(paths) == 0 || paths[0] != project {
			paths = append(paths, project)
		}
	}
	return paths
}

// Validate rejects settings the application cannot run with.
func (c *Config) Validate() error {
	known := false
	for _, kind := range storage.Kinds() {
		if c.Storage.Format == kind {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("invalid storage.format %q (available: %v)", c.Storage.Format, storage.Kinds())
	}
	if c.Storage.Format != storage.KindMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for %s storage", c.Storage.Format)
	}
	if c.Reminders.DaysBefore < 0 || c.Reminders.HoursBefore < 0 {
		return fmt.Errorf("reminder offsets must not be negative")
	}
	return nil
}

// GlobalConfigPath returns the path to the global config file
func GlobalConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, dirName, fileName)
}

// ProjectConfigPath returns the path to the project config file
func ProjectConfigPath() string {
	cwd, _ := os.Getwd()
	return filepath.Join(cwd, dirName, fileName)
}
