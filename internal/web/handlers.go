package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rcliao/ddltrack/internal/domain"
	"github.com/rcliao/ddltrack/internal/service"
)

const maxBatchSize = 1000

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

// finish maps a store result to a response: a persistence error is a 500 and
// a rejection is a 409.
func finish(c *gin.Context, ok bool, err error) {
	switch {
	case err != nil:
		fail(c, http.StatusInternalServerError, err.Error())
	case !ok:
		fail(c, http.StatusConflict, "request rejected")
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// requireTask writes a 404 and returns false when the :id task is unknown.
func (s *Server) requireTask(c *gin.Context) (*domain.Task, bool) {
	task, ok := s.tasks.GetByID(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "task not found")
		return nil, false
	}
	return task, true
}

func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, key+" must be an integer")
		return 0, false
	}
	return n, true
}

// Task handlers

func (s *Server) handleListTasks(c *gin.Context) {
	switch c.Query("status") {
	case "":
		respond(c, http.StatusOK, s.tasks.GetAll())
	case "pending":
		respond(c, http.StatusOK, s.tasks.GetPending())
	case "completed":
		respond(c, http.StatusOK, s.tasks.GetCompleted())
	case "roots":
		respond(c, http.StatusOK, s.tasks.GetRoots())
	default:
		fail(c, http.StatusBadRequest, "status must be pending, completed or roots")
	}
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}
	respond(c, http.StatusOK, task)
}

func (s *Server) handleTaskContext(c *gin.Context) {
	ctx, ok := s.context.GetTaskContext(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "task not found")
		return
	}
	respond(c, http.StatusOK, ctx)
}

// TaskRequest is the body of create and update calls.
type TaskRequest struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Detail        string   `json:"detail"`
	OriginalText  string   `json:"originalText"`
	Deadline      string   `json:"deadline"`
	Importance    string   `json:"importance"`
	CustomColor   string   `json:"customColor"`
	ParentID      string   `json:"parentId"`
	DependencyIDs []string `json:"dependencyIds"`
}

// apply copies the content fields onto task, reporting the first invalid one.
func (r TaskRequest) apply(task *domain.Task) string {
	task.Name = r.Name
	task.Detail = r.Detail
	task.OriginalText = r.OriginalText

	task.Deadline = nil
	if r.Deadline != "" {
		d, err := domain.ParseDeadline(r.Deadline)
		if err != nil {
			return err.Error()
		}
		task.Deadline = &d
	}

	task.Importance = domain.ImportanceMedium
	if r.Importance != "" {
		level, ok := domain.ParseImportance(r.Importance)
		if !ok {
			return "invalid importance " + strconv.Quote(r.Importance)
		}
		task.Importance = level
	}

	task.CustomColor = ""
	if r.CustomColor != "" {
		color, ok := domain.NormalizeColor(r.CustomColor)
		if !ok {
			return "invalid color " + strconv.Quote(r.CustomColor)
		}
		task.CustomColor = color
	}
	return ""
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		fail(c, http.StatusUnprocessableEntity, "name is required")
		return
	}

	task := domain.NewTask("", "")
	if req.ID != "" {
		task.ID = req.ID
	}
	if msg := req.apply(task); msg != "" {
		fail(c, http.StatusUnprocessableEntity, msg)
		return
	}
	task.ParentID = req.ParentID
	task.DependencyIDs = append(task.DependencyIDs, req.DependencyIDs...)

	stored, err := s.tasks.Add(task)
	if err != nil {
		status := http.StatusInternalServerError
		if isExists(err) {
			status = http.StatusConflict
		}
		fail(c, status, err.Error())
		return
	}
	respond(c, http.StatusCreated, stored)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	task, ok := s.requireTask(c)
	if !ok {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" {
		fail(c, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if msg := req.apply(task); msg != "" {
		fail(c, http.StatusUnprocessableEntity, msg)
		return
	}

	ok, err := s.tasks.Update(task)
	finish(c, ok, err)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	ok, err := s.tasks.Delete(c.Param("id"))
	finish(c, ok, err)
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}

	var req struct {
		Completed *bool `json:"completed"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	ok, err := s.tasks.MarkCompleted(c.Param("id"), completed)
	finish(c, ok, err)
}

func (s *Server) handleSetImportance(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}

	var req struct {
		Importance string `json:"importance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := domain.ParseImportance(req.Importance); !ok {
		fail(c, http.StatusUnprocessableEntity, "invalid importance "+strconv.Quote(req.Importance))
		return
	}

	ok, err := s.tasks.SetImportance(c.Param("id"), req.Importance)
	finish(c, ok, err)
}

func (s *Server) handleSetColor(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}

	var req struct {
		Color string `json:"color"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := domain.NormalizeColor(req.Color); !ok {
		fail(c, http.StatusUnprocessableEntity, "invalid color "+strconv.Quote(req.Color))
		return
	}

	ok, err := s.tasks.SetCustomColor(c.Param("id"), req.Color)
	finish(c, ok, err)
}

func (s *Server) handleResetColor(c *gin.Context) {
	if _, ok := s.requireTask(c); !ok {
		return
	}
	ok, err := s.tasks.ResetColor(c.Param("id"))
	finish(c, ok, err)
}

func (s *Server) handleImport(c *gin.Context) {
	var req struct {
		Tasks []domain.ImportRecord `json:"tasks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Tasks) > maxBatchSize {
		fail(c, http.StatusBadRequest, "too many tasks in one import")
		return
	}

	now := s.now()
	tasks := make([]*domain.Task, 0, len(req.Tasks))
	for _, record := range req.Tasks {
		tasks = append(tasks, record.ToTask(now))
	}

	added, err := s.tasks.AddBatch(tasks)
	if err != nil {
		status := http.StatusInternalServerError
		if isExists(err) {
			status = http.StatusConflict
		}
		fail(c, status, err.Error())
		return
	}
	respond(c, http.StatusCreated, added)
}

func (s *Server) handleDeleteCompleted(c *gin.Context) {
	count, err := s.tasks.DeleteAllCompleted()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": count})
}

func (s *Server) handleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		fail(c, http.StatusBadRequest, "query parameter required")
		return
	}
	limit, ok := queryInt(c, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(c, "offset", 0)
	if !ok {
		return
	}

	results := s.searcher.Search(query, domain.SearchOptions{
		PendingOnly: c.Query("pending") == "true",
		Limit:       limit,
		Offset:      offset,
	})
	respond(c, http.StatusOK, results)
}

func (s *Server) handleNextTask(c *gin.Context) {
	task, ok := s.context.GetNextTask(domain.NextTaskCriteria{Exclude: c.QueryArray("exclude")})
	if !ok {
		fail(c, http.StatusNotFound, "no pending task")
		return
	}
	respond(c, http.StatusOK, task)
}

func (s *Server) handleVerify(c *gin.Context) {
	problems := s.tasks.Verify()
	if problems == nil {
		problems = []string{}
	}
	respond(c, http.StatusOK, problems)
}

// Calendar handlers

func (s *Server) handleCalendarMonth(c *gin.Context) {
	now := s.now()
	year, ok := queryInt(c, "year", now.Year())
	if !ok {
		return
	}
	month, ok := queryInt(c, "month", int(now.Month()))
	if !ok {
		return
	}
	if month < 1 || month > 12 {
		fail(c, http.StatusBadRequest, "month must be between 1 and 12")
		return
	}
	respond(c, http.StatusOK, s.calendar.EventsForMonth(year, time.Month(month)))
}

func (s *Server) handleCalendarWeek(c *gin.Context) {
	start := s.now()
	if raw := c.Query("start"); raw != "" {
		d, err := domain.ParseDeadline(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		start = d
	}
	days, ok := queryInt(c, "days", 7)
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.calendar.EventsForWeek(start, days))
}

func (s *Server) handleCalendarUpcoming(c *gin.Context) {
	days, ok := queryInt(c, "days", 14)
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.calendar.Upcoming(s.now(), days))
}

func (s *Server) handleCalendarReminders(c *gin.Context) {
	respond(c, http.StatusOK, s.calendar.DueReminders(s.now(), s.reminders))
}

func (s *Server) handleCalendarICS(c *gin.Context) {
	days, ok := queryInt(c, "days", 30)
	if !ok {
		return
	}
	now := s.now()
	ics := service.BuildICS(s.calendar.Upcoming(now, days), now)
	c.Header("Content-Disposition", `attachment; filename="deadlines.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(ics))
}
