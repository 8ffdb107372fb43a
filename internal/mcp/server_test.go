package mcp

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ddltrack/internal/domain"
	"github.com/rcliao/ddltrack/internal/search"
	"github.com/rcliao/ddltrack/internal/service"
	"github.com/rcliao/ddltrack/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

func newTestServer(t *testing.T) (*MCPServer, *service.TaskService) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	taskService := service.NewTaskService(storage.NewMemoryStorage(), logger)
	server := NewMCPServer(
		taskService,
		service.NewCalendarService(taskService),
		service.NewContextRetriever(taskService),
		search.NewKeywordSearch(taskService),
		domain.ReminderSettings{Enabled: true, DaysBefore: 1, HoursBefore: 3},
		logger,
	)
	server.now = func() time.Time { return testNow }
	return server, taskService
}

func call(t *testing.T, server *MCPServer, method string, params interface{}) interface{} {
	t.Helper()
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		require.NoError(t, err)
		raw = data
	}
	result, err := server.HandleCommand(method, raw)
	require.NoError(t, err, method)
	return result
}

func createTask(t *testing.T, server *MCPServer, params CreateTaskParams) *domain.Task {
	t.Helper()
	task, ok := call(t, server, "ddl.task.create", params).(*domain.Task)
	require.True(t, ok)
	return task
}

func TestMCPServer_TaskCommands(t *testing.T) {
	server, taskService := newTestServer(t)

	task := createTask(t, server, CreateTaskParams{
		Name:       "Essay",
		Detail:     "History essay",
		Deadline:   "2026-03-02 18:00",
		Importance: "high",
	})
	assert.Equal(t, domain.ImportanceHigh, task.Importance)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, 18, task.Deadline.Hour())

	got := call(t, server, "ddl.task.get", IDParams{ID: task.ID}).(*domain.Task)
	assert.Equal(t, "Essay", got.Name)

	name := "Final essay"
	empty := ""
	result := call(t, server, "ddl.task.update", UpdateTaskParams{ID: task.ID, Name: &name, Deadline: &empty})
	assert.Equal(t, Ack{Success: true}, result)
	got, _ = taskService.GetByID(task.ID)
	assert.Equal(t, "Final essay", got.Name)
	assert.Equal(t, "History essay", got.Detail)
	assert.Nil(t, got.Deadline)

	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.task.color", ColorParams{ID: task.ID, Color: "#00ff00"}))
	got, _ = taskService.GetByID(task.ID)
	assert.Equal(t, "#00FF00", got.CustomColor)
	assert.Equal(t, Ack{Success: false}, call(t, server, "ddl.task.color", ColorParams{ID: task.ID, Color: "green"}))
	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.task.color.reset", IDParams{ID: task.ID}))

	assert.Equal(t, Ack{Success: false}, call(t, server, "ddl.task.importance", ImportanceParams{ID: task.ID, Importance: "urgent"}))
	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.task.importance", ImportanceParams{ID: task.ID, Importance: "low"}))

	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.task.complete", CompleteTaskParams{ID: task.ID}))
	completed := call(t, server, "ddl.task.completed", nil).([]*domain.Task)
	require.Len(t, completed, 1)
	assert.Empty(t, call(t, server, "ddl.task.pending", nil))

	deleted := call(t, server, "ddl.task.delete_completed", nil)
	assert.Equal(t, map[string]int{"deleted": 1}, deleted)
	assert.Equal(t, 0, taskService.Len())

	assert.Equal(t, Ack{Success: false}, call(t, server, "ddl.task.delete", IDParams{ID: task.ID}))
}

func TestMCPServer_Errors(t *testing.T) {
	server, _ := newTestServer(t)

	_, err := server.HandleCommand("ddl.nope", nil)
	assert.True(t, errors.Is(err, ErrUnknownMethod))

	_, err = server.HandleCommand("ddl.task.get", json.RawMessage(`{"id":`))
	assert.True(t, errors.Is(err, ErrInvalidParams))

	_, err = server.HandleCommand("ddl.task.get", json.RawMessage(`{"id":"missing"}`))
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = server.HandleCommand("ddl.task.create", json.RawMessage(`{"name":"x","deadline":"someday"}`))
	assert.True(t, errors.Is(err, ErrInvalidParams))

	_, err = server.HandleCommand("ddl.task.create", json.RawMessage(`{"detail":"no name"}`))
	assert.True(t, errors.Is(err, ErrInvalidParams))

	_, err = server.HandleCommand("ddl.task.list", json.RawMessage(`{"format":"xml"}`))
	assert.True(t, errors.Is(err, ErrInvalidParams))

	_, err = server.HandleCommand("ddl.calendar.month", json.RawMessage(`{"month":13}`))
	assert.True(t, errors.Is(err, ErrInvalidParams))
}

func TestMCPServer_Import(t *testing.T) {
	server, taskService := newTestServer(t)

	result := call(t, server, "ddl.task.import", ImportTasksParams{Tasks: []domain.ImportRecord{
		{Name: "Quiz", Deadline: "2026-03-05", Importance: "高"},
		{Name: "Reading", Deadline: "not a date", Importance: "whatever"},
	}}).(map[string]interface{})
	assert.Equal(t, 2, result["imported"])

	tasks := taskService.GetAll()
	require.Len(t, tasks, 2)
	assert.Equal(t, "Quiz", tasks[0].Name)
	assert.Equal(t, domain.ImportanceHigh, tasks[0].Importance)
	assert.Nil(t, tasks[1].Deadline)
	assert.Equal(t, domain.ImportanceMedium, tasks[1].Importance)
}

func TestMCPServer_RelationCommands(t *testing.T) {
	server, _ := newTestServer(t)
	parent := createTask(t, server, CreateTaskParams{Name: "Project"})
	a := createTask(t, server, CreateTaskParams{Name: "Part A", ParentID: parent.ID})
	b := createTask(t, server, CreateTaskParams{Name: "Part B", ParentID: parent.ID, DependencyIDs: []string{a.ID}})

	children := call(t, server, "ddl.relation.children", IDParams{ID: parent.ID}).([]*domain.Task)
	require.Len(t, children, 2)
	assert.Equal(t, a.ID, children[0].ID)

	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.relation.reorder", ReorderParams{ParentID: parent.ID, ChildIDs: []string{b.ID, a.ID}}))
	children = call(t, server, "ddl.relation.children", IDParams{ID: parent.ID}).([]*domain.Task)
	assert.Equal(t, b.ID, children[0].ID)

	assert.Equal(t, Ack{Success: false}, call(t, server, "ddl.relation.dependency.add", DependencyParams{TaskID: a.ID, DependencyID: b.ID}))
	assert.Equal(t, Ack{Success: false}, call(t, server, "ddl.relation.parent", ParentParams{TaskID: parent.ID, ParentID: a.ID}))

	dependents := call(t, server, "ddl.relation.dependents", IDParams{ID: a.ID}).([]*domain.Task)
	require.Len(t, dependents, 1)
	assert.Equal(t, b.ID, dependents[0].ID)

	assert.Equal(t, map[string]bool{"canDelete": false}, call(t, server, "ddl.relation.can_delete", IDParams{ID: a.ID}))
	assert.Equal(t, Ack{Success: false}, call(t, server, "ddl.task.delete", IDParams{ID: a.ID}))

	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.relation.dependency.remove", DependencyParams{TaskID: b.ID, DependencyID: a.ID}))
	assert.Equal(t, Ack{Success: true}, call(t, server, "ddl.task.delete", IDParams{ID: a.ID}))

	roots := call(t, server, "ddl.relation.roots", nil).([]*domain.Task)
	require.Len(t, roots, 1)
	assert.Equal(t, parent.ID, roots[0].ID)

	ctx := call(t, server, "ddl.task.context", IDParams{ID: b.ID}).(*domain.TaskContext)
	assert.Equal(t, parent.ID, ctx.Parent.ID)

	verify := call(t, server, "ddl.verify", nil).(map[string]interface{})
	assert.Empty(t, verify["problems"])
}

func TestMCPServer_CalendarAndSearch(t *testing.T) {
	server, _ := newTestServer(t)
	createTask(t, server, CreateTaskParams{Name: "Lab report", Deadline: "2026-03-01 20:00"})
	createTask(t, server, CreateTaskParams{Name: "Exam", Detail: "report to hall", Deadline: "2026-03-10 09:00"})
	createTask(t, server, CreateTaskParams{Name: "Trip", Deadline: "2026-04-02 09:00"})

	month := call(t, server, "ddl.calendar.month", nil).([]*domain.CalendarEvent)
	assert.Len(t, month, 2)
	april := call(t, server, "ddl.calendar.month", MonthParams{Month: 4}).([]*domain.CalendarEvent)
	assert.Len(t, april, 1)

	week := call(t, server, "ddl.calendar.week", WeekParams{Start: "2026-03-08", Days: 3}).([]*domain.CalendarEvent)
	require.Len(t, week, 1)
	assert.Equal(t, "Exam", week[0].Name)

	upcoming := call(t, server, "ddl.calendar.upcoming", UpcomingParams{Days: 5}).([]*domain.CalendarEvent)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "Lab report", upcoming[0].Name)

	reminders := call(t, server, "ddl.calendar.reminders", nil).([]*domain.Task)
	require.Len(t, reminders, 1)
	assert.Equal(t, "Lab report", reminders[0].Name)
	zero := 0
	reminders = call(t, server, "ddl.calendar.reminders", RemindersParams{DaysBefore: &zero, HoursBefore: &zero}).([]*domain.Task)
	assert.Empty(t, reminders)

	ics := call(t, server, "ddl.calendar.ics", nil).(string)
	assert.Contains(t, ics, "SUMMARY:Lab report")
	assert.NotContains(t, ics, "SUMMARY:Trip")

	results := call(t, server, "ddl.task.search", SearchParams{Query: "report"}).([]*domain.SearchResult)
	require.Len(t, results, 2)
	assert.Equal(t, "Lab report", results[0].Task.Name)

	md := call(t, server, "ddl.task.pending", ListTasksParams{Format: "markdown"}).(string)
	assert.Contains(t, md, "**Lab report**")
	assert.Contains(t, md, "Due **today**")
}
