package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rcliao/ddltrack/internal/domain"
	"github.com/rcliao/ddltrack/internal/search"
	"github.com/rcliao/ddltrack/internal/service"
)

var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrInvalidParams = errors.New("invalid parameters")
	ErrNotFound      = errors.New("not found")
)

type MCPServer struct {
	taskService      *service.TaskService
	calendarService  *service.CalendarService
	contextRetriever *service.ContextRetriever
	searcher         *search.KeywordSearch
	reminders        domain.ReminderSettings
	logger           *log.Logger
	now              func() time.Time
}

func NewMCPServer(taskService *service.TaskService, calendarService *service.CalendarService, contextRetriever *service.ContextRetriever, searcher *search.KeywordSearch, reminders domain.ReminderSettings, logger *log.Logger) *MCPServer {
	if logger == nil {
		logger = log.Default()
	}
	return &MCPServer{
		taskService:      taskService,
		calendarService:  calendarService,
		contextRetriever: contextRetriever,
		searcher:         searcher,
		reminders:        reminders,
		logger:           logger,
		now:              time.Now,
	}
}

// Ack is the result of every mutation. Success is false when the store
// rejected the request.
type Ack struct {
	Success bool `json:"success"`
}

func (s *MCPServer) HandleCommand(method string, params json.RawMessage) (interface{}, error) {
	s.logger.Printf("MCPServer: handling %s", method)

	switch method {
	// Task commands
	case "ddl.task.list":
		return s.handleTaskList(params)
	case "ddl.task.pending":
		return s.handleTaskListFixed(params, false)
	case "ddl.task.completed":
		return s.handleTaskListFixed(params, true)
	case "ddl.task.get":
		return s.handleTaskGet(params)
	case "ddl.task.context":
		return s.handleTaskContext(params)
	case "ddl.task.next":
		return s.handleTaskNext(params)
	case "ddl.task.create":
		return s.handleTaskCreate(params)
	case "ddl.task.import":
		return s.handleTaskImport(params)
	case "ddl.task.update":
		return s.handleTaskUpdate(params)
	case "ddl.task.complete":
		return s.handleTaskComplete(params)
	case "ddl.task.importance":
		return s.handleTaskImportance(params)
	case "ddl.task.color":
		return s.handleTaskColor(params)
	case "ddl.task.color.reset":
		return s.handleTaskColorReset(params)
	case "ddl.task.delete":
		return s.handleTaskDelete(params)
	case "ddl.task.delete_completed":
		return s.handleDeleteCompleted()
	case "ddl.task.search":
		return s.handleTaskSearch(params)

	// Relationship commands
	case "ddl.relation.parent":
		return s.handleSetParent(params)
	case "ddl.relation.dependency.add":
		return s.handleDependencyAdd(params)
	case "ddl.relation.dependency.remove":
		return s.handleDependencyRemove(params)
	case "ddl.relation.children":
		return s.handleChildren(params)
	case "ddl.relation.dependencies":
		return s.handleDependencies(params)
	case "ddl.relation.dependents":
		return s.handleDependents(params)
	case "ddl.relation.roots":
		return s.taskService.GetRoots(), nil
	case "ddl.relation.reorder":
		return s.handleReorder(params)
	case "ddl.relation.can_delete":
		return s.handleCanDelete(params)
	case "ddl.verify":
		return map[string]interface{}{"problems": nonNil(s.taskService.Verify())}, nil

	// Calendar commands
	case "ddl.calendar.month":
		return s.handleCalendarMonth(params)
	case "ddl.calendar.week":
		return s.handleCalendarWeek(params)
	case "ddl.calendar.upcoming":
		return s.handleCalendarUpcoming(params)
	case "ddl.calendar.reminders":
		return s.handleCalendarReminders(params)
	case "ddl.calendar.ics":
		return s.handleCalendarICS(params)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

func decodeParams(params json.RawMessage, v interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

func ack(ok bool, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return Ack{Success: ok}, nil
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// Task handlers
type IDParams struct {
	ID string `json:"id"`
}

type ListTasksParams struct {
	Completed *bool   `json:"completed,omitempty"`
	RootsOnly bool    `json:"rootsOnly,omitempty"`
	ParentID  *string `json:"parentId,omitempty"`
	Format    string  `json:"format,omitempty"`
}

func (s *MCPServer) handleTaskList(params json.RawMessage) (interface{}, error) {
	var p ListTasksParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	tasks := s.taskService.List(domain.TaskFilter{
		Completed: p.Completed,
		RootsOnly: p.RootsOnly,
		ParentID:  p.ParentID,
	})
	return s.formatTasks(tasks, p.Format)
}

func (s *MCPServer) handleTaskListFixed(params json.RawMessage, completed bool) (interface{}, error) {
	var p ListTasksParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	var tasks []*domain.Task
	if completed {
		tasks = s.taskService.GetCompleted()
	} else {
		tasks = s.taskService.GetPending()
	}
	return s.formatTasks(tasks, p.Format)
}

func (s *MCPServer) formatTasks(tasks []*domain.Task, format string) (interface{}, error) {
	switch format {
	case "", "json":
		return tasks, nil
	case "markdown":
		return FormatTasksAsMarkdown(tasks, s.now()), nil
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrInvalidParams, format)
	}
}

func (s *MCPServer) handleTaskGet(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	task, ok := s.taskService.GetByID(p.ID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", p.ID, ErrNotFound)
	}
	return task, nil
}

func (s *MCPServer) handleTaskContext(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	ctx, ok := s.contextRetriever.GetTaskContext(p.ID)
	if !ok {
		return nil, fmt.Errorf("task %s: %w", p.ID, ErrNotFound)
	}
	return ctx, nil
}

func (s *MCPServer) handleTaskNext(params json.RawMessage) (interface{}, error) {
	var p domain.NextTaskCriteria
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	task, ok := s.contextRetriever.GetNextTask(p)
	if !ok {
		return nil, fmt.Errorf("pending task: %w", ErrNotFound)
	}
	return task, nil
}

type CreateTaskParams struct {
	ID            string   `json:"id,omitempty"`
	Name          string   `json:"name"`
	Detail        string   `json:"detail,omitempty"`
	OriginalText  string   `json:"originalText,omitempty"`
	Deadline      string   `json:"deadline,omitempty"`
	Importance    string   `json:"importance,omitempty"`
	CustomColor   string   `json:"customColor,omitempty"`
	ParentID      string   `json:"parentId,omitempty"`
	DependencyIDs []string `json:"dependencyIds,omitempty"`
}

func (s *MCPServer) handleTaskCreate(params json.RawMessage) (interface{}, error) {
	var p CreateTaskParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidParams)
	}

	task := domain.NewTask(p.Name, p.Detail)
	if p.ID != "" {
		task.ID = p.ID
	}
	task.OriginalText = p.OriginalText
	if p.Deadline != "" {
		d, err := domain.ParseDeadline(p.Deadline)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		task.Deadline = &d
	}
	if p.Importance != "" {
		level, ok := domain.ParseImportance(p.Importance)
		if !ok {
			return nil, fmt.Errorf("%w: invalid importance %q", ErrInvalidParams, p.Importance)
		}
		task.Importance = level
	}
	if p.CustomColor != "" {
		color, ok := domain.NormalizeColor(p.CustomColor)
		if !ok {
			return nil, fmt.Errorf("%w: invalid color %q", ErrInvalidParams, p.CustomColor)
		}
		task.CustomColor = color
	}
	task.ParentID = p.ParentID
	task.DependencyIDs = append(task.DependencyIDs, p.DependencyIDs...)

	return s.taskService.Add(task)
}

type ImportTasksParams struct {
	Tasks []domain.ImportRecord `json:"tasks"`
}

func (s *MCPServer) handleTaskImport(params json.RawMessage) (interface{}, error) {
	var p ImportTasksParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	now := s.now()
	tasks := make([]*domain.Task, 0, len(p.Tasks))
	for _, record := range p.Tasks {
		tasks = append(tasks, record.ToTask(now))
	}

	added, err := s.taskService.AddBatch(tasks)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"imported": len(added),
		"tasks":    added,
	}, nil
}

// UpdateTaskParams carries only the fields to change. An empty deadline or
// color clears it.
type UpdateTaskParams struct {
	ID           string  `json:"id"`
	Name         *string `json:"name,omitempty"`
	Detail       *string `json:"detail,omitempty"`
	OriginalText *string `json:"originalText,omitempty"`
	Deadline     *string `json:"deadline,omitempty"`
	Importance   *string `json:"importance,omitempty"`
	CustomColor  *string `json:"customColor,omitempty"`
}

func (s *MCPServer) handleTaskUpdate(params json.RawMessage) (interface{}, error) {
	var p UpdateTaskParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	task, ok := s.taskService.GetByID(p.ID)
	if !ok {
		return Ack{Success: false}, nil
	}
	if p.Name != nil {
		task.Name = *p.Name
	}
	if p.Detail != nil {
		task.Detail = *p.Detail
	}
	if p.OriginalText != nil {
		task.OriginalText = *p.OriginalText
	}
	if p.Deadline != nil {
		task.Deadline = nil
		if *p.Deadline != "" {
			d, err := domain.ParseDeadline(*p.Deadline)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
			}
			task.Deadline = &d
		}
	}
	if p.Importance != nil {
		task.Importance = domain.Importance(*p.Importance)
	}
	if p.CustomColor != nil {
		task.CustomColor = *p.CustomColor
	}

	return ack(s.taskService.Update(task))
}

type CompleteTaskParams struct {
	ID        string `json:"id"`
	Completed *bool  `json:"completed,omitempty"`
}

func (s *MCPServer) handleTaskComplete(params json.RawMessage) (interface{}, error) {
	var p CompleteTaskParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	completed := true
	if p.Completed != nil {
		completed = *p.Completed
	}
	return ack(s.taskService.MarkCompleted(p.ID, completed))
}

type ImportanceParams struct {
	ID         string `json:"id"`
	Importance string `json:"importance"`
}

func (s *MCPServer) handleTaskImportance(params json.RawMessage) (interface{}, error) {
	var p ImportanceParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.SetImportance(p.ID, p.Importance))
}

type ColorParams struct {
	ID    string `json:"id"`
	Color string `json:"color"`
}

func (s *MCPServer) handleTaskColor(params json.RawMessage) (interface{}, error) {
	var p ColorParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.SetCustomColor(p.ID, p.Color))
}

func (s *MCPServer) handleTaskColorReset(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.ResetColor(p.ID))
}

func (s *MCPServer) handleTaskDelete(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.Delete(p.ID))
}

func (s *MCPServer) handleDeleteCompleted() (interface{}, error) {
	count, err := s.taskService.DeleteAllCompleted()
	if err != nil {
		return nil, err
	}
	return map[string]int{"deleted": count}, nil
}

type SearchParams struct {
	Query       string `json:"query"`
	PendingOnly bool   `json:"pendingOnly,omitempty"`
	Limit       int    `json:"limit,omitempty"`
	Offset      int    `json:"offset,omitempty"`
}

func (s *MCPServer) handleTaskSearch(params json.RawMessage) (interface{}, error) {
	var p SearchParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	opts := domain.SearchOptions{
		PendingOnly: p.PendingOnly,
		Limit:       p.Limit,
		Offset:      p.Offset,
	}
	if opts.Limit == 0 {
		opts.Limit = 10
	}

	return s.searcher.Search(p.Query, opts), nil
}
