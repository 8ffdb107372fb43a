package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcliao/ddltrack/internal/app"
	"github.com/rcliao/ddltrack/internal/config"
	"github.com/rcliao/ddltrack/internal/storage"
)

var Version = "dev"

var (
	configFile string
	dataPath   string
	dataFormat string
	inMemory   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ddltrack",
		Short: "ddltrack - deadline tracker with task relationships",
		Long: `ddltrack keeps deadline tasks in a single file and tracks their parent,
child and dependency relationships.

Without a subcommand it serves the MCP protocol on stdin/stdout.`,
		Version:       Version,
		RunE:          runMCP,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ~/.ddltrack/config.yaml then ./.ddltrack/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "task file path (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&dataFormat, "format", "", "task file format: json or yaml (overrides storage.format)")
	rootCmd.PersistentFlags().BoolVar(&inMemory, "memory", false, "keep tasks in memory only")

	rootCmd.AddCommand(mcpCmd())
	rootCmd.AddCommand(httpCmd())
	rootCmd.AddCommand(replCmd())
	rootCmd.AddCommand(execCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.Options{ConfigFile: configFile})
	if err != nil {
		return nil, err
	}

	if dataPath != "" {
		cfg.Storage.Path = dataPath
	}
	if dataFormat != "" {
		cfg.Storage.Format = dataFormat
	}
	if inMemory {
		cfg.Storage.Format = storage.KindMemory
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openApp loads configuration and storage. Logs go to stderr so stdout stays
// free for protocol and command output.
func openApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var out io.Writer = os.Stderr
	if cfg.Log.Quiet {
		out = io.Discard
	}
	logger := log.New(out, "", log.LstdFlags)

	return app.New(cfg, logger)
}
