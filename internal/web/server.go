package web

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/rcliao/ddltrack/internal/domain"
	"github.com/rcliao/ddltrack/internal/search"
	"github.com/rcliao/ddltrack/internal/service"
)

// Server is the ddltrack REST API
type Server struct {
	tasks     *service.TaskService
	calendar  *service.CalendarService
	context   *service.ContextRetriever
	searcher  *search.KeywordSearch
	reminders domain.ReminderSettings
	logger    *log.Logger
	now       func() time.Time

	router  *gin.Engine
	handler http.Handler
}

type Options struct {
	AllowedOrigins []string
	Reminders      domain.ReminderSettings
	Logger         *log.Logger
}

func NewServer(tasks *service.TaskService, calendar *service.CalendarService, contextRetriever *service.ContextRetriever, searcher *search.KeywordSearch, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	router := gin.New()
	router.Use(gin.LoggerWithWriter(logger.Writer()), gin.Recovery())

	s := &Server{
		tasks:     tasks,
		calendar:  calendar,
		context:   contextRetriever,
		searcher:  searcher,
		reminders: opts.Reminders,
		logger:    logger,
		now:       time.Now,
		router:    router,
	}

	api := router.Group("/api")
	{
		api.GET("/tasks", s.handleListTasks)
		api.POST("/tasks", s.handleCreateTask)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PUT("/tasks/:id", s.handleUpdateTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.GET("/tasks/:id/context", s.handleTaskContext)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.PUT("/tasks/:id/importance", s.handleSetImportance)
		api.PUT("/tasks/:id/color", s.handleSetColor)
		api.DELETE("/tasks/:id/color", s.handleResetColor)

		api.PUT("/tasks/:id/parent", s.handleSetParent)
		api.GET("/tasks/:id/parent", s.handleGetParent)
		api.GET("/tasks/:id/children", s.handleGetChildren)
		api.PUT("/tasks/:id/children/order", s.handleReorderChildren)
		api.GET("/tasks/:id/dependencies", s.handleGetDependencies)
		api.POST("/tasks/:id/dependencies/:dep", s.handleAddDependency)
		api.DELETE("/tasks/:id/dependencies/:dep", s.handleRemoveDependency)
		api.GET("/tasks/:id/dependents", s.handleGetDependents)
		api.GET("/tasks/:id/can-delete", s.handleCanDelete)

		api.POST("/import", s.handleImport)
		api.DELETE("/completed", s.handleDeleteCompleted)
		api.GET("/roots", s.handleRoots)
		api.GET("/next", s.handleNextTask)
		api.GET("/verify", s.handleVerify)
		api.GET("/search", s.handleSearch)

		api.GET("/calendar/month", s.handleCalendarMonth)
		api.GET("/calendar/week", s.handleCalendarWeek)
		api.GET("/calendar/upcoming", s.handleCalendarUpcoming)
		api.GET("/calendar/reminders", s.handleCalendarReminders)
		api.GET("/calendar.ics", s.handleCalendarICS)
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = c.Handler(router)

	return s
}

// Handler returns the router wrapped in the CORS middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Printf("Web: listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Println("Web: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
