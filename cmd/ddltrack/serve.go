package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var httpAddr string

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP protocol on stdin/stdout",
		RunE:  runMCP,
	}
}

func runMCP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}

	transport := a.MCPTransport(os.Stdin, os.Stdout, Version)
	if err := transport.Start(); err != nil {
		return fmt.Errorf("MCP transport error: %w", err)
	}
	return nil
}

func httpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the REST API",
		Long: `Serve the REST API under /api.

Examples:
  ddltrack http
  ddltrack http --addr 127.0.0.1:9000 --data ~/deadlines.json`,
		RunE: runHTTP,
	}

	cmd.Flags().StringVar(&httpAddr, "addr", "", "listen address (overrides http.addr)")

	return cmd
}

func runHTTP(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}

	addr := a.Config.HTTP.Addr
	if httpAddr != "" {
		addr = httpAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.WebServer().Run(ctx, addr)
}
