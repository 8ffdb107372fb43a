// Package app wires storage, services and the two front ends from a Config.
package app

import (
	"fmt"
	"io"
	"log"

	"github.com/rcliao/ddltrack/internal/config"
	"github.com/rcliao/ddltrack/internal/mcp"
	"github.com/rcliao/ddltrack/internal/search"
	"github.com/rcliao/ddltrack/internal/service"
	"github.com/rcliao/ddltrack/internal/storage"
	"github.com/rcliao/ddltrack/internal/web"
)

type App struct {
	Config   *config.Config
	Storage  storage.Backend
	Tasks    *service.TaskService
	Calendar *service.CalendarService
	Context  *service.ContextRetriever
	Search   *search.KeywordSearch

	logger *log.Logger
}

// New opens the configured backend and loads the collection from it.
func New(cfg *config.Config, logger *log.Logger) (*App, error) {
	if logger == nil {
		logger = log.Default()
	}

	backend, err := storage.Open(cfg.Storage.Format, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if fs, ok := backend.(*storage.FileStorage); ok {
		fs.SetLocking(cfg.Storage.Lock)
	}

	tasks := service.NewTaskService(backend, logger)
	logger.Printf("App: loaded %d tasks from %s storage", tasks.Len(), cfg.Storage.Format)

	return &App{
		Config:   cfg,
		Storage:  backend,
		Tasks:    tasks,
		Calendar: service.NewCalendarService(tasks),
		Context:  service.NewContextRetriever(tasks),
		Search:   search.NewKeywordSearch(tasks),
		logger:   logger,
	}, nil
}

func (a *App) MCPServer() *mcp.MCPServer {
	return mcp.NewMCPServer(a.Tasks, a.Calendar, a.Context, a.Search, a.Config.Reminders, a.logger)
}

// MCPTransport serves JSON-RPC over the given streams.
func (a *App) MCPTransport(in io.Reader, out io.Writer, version string) *mcp.MCPTransport {
	return mcp.NewMCPTransport(a.MCPServer(), in, out, a.logger, version)
}

func (a *App) WebServer() *web.Server {
	return web.NewServer(a.Tasks, a.Calendar, a.Context, a.Search, web.Options{
		AllowedOrigins: a.Config.HTTP.AllowedOrigins,
		Reminders:      a.Config.Reminders,
		Logger:         a.logger,
	})
}
