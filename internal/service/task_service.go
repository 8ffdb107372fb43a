package service

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rcliao/ddltrack/internal/domain"
)

// TaskService is the task store and relationship engine. It owns the only
// in-memory copy of the collection and writes the whole collection back to
// storage after every successful mutation.
//
// Rejected operations return false with a nil error. A non-nil error always
// means the write to storage failed; the in-memory change has been applied by
// then and is not rolled back.
type TaskService struct {
	storage TaskStorage
	logger  *log.Logger
	now     func() time.Time

	mu    sync.RWMutex
	tasks []*domain.Task
	index map[string]*domain.Task
}

type TaskStorage interface {
	LoadTasks() ([]*domain.Task, error)
	SaveTasks(tasks []*domain.Task) error
}

func NewTaskService(storage TaskStorage, logger *log.Logger) *TaskService {
	if logger == nil {
		logger = log.Default()
	}
	s := &TaskService{
		storage: storage,
		logger:  logger,
		now:     time.Now,
	}
	s.load()
	return s
}

// Reload replaces the in-memory collection with what storage currently holds.
func (s *TaskService) Reload() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load()
}

// load never fails: unreadable data leaves an empty collection.
func (s *TaskService) load() {
	tasks, err := s.storage.LoadTasks()
	if err != nil {
		s.logger.Printf("TaskService: failed to load tasks, starting with an empty collection: %v", err)
		tasks = nil
	}

	s.tasks = make([]*domain.Task, 0, len(tasks))
	s.index = make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		if t == nil || t.ID == "" {
			continue
		}
		if _, dup := s.index[t.ID]; dup {
			s.logger.Printf("TaskService: dropping duplicate task %s on load", t.ID)
			continue
		}
		s.insert(t)
	}

	for _, problem := range s.verifyLocked() {
		s.logger.Printf("TaskService: integrity warning: %s", problem)
	}
}

func (s *TaskService) insert(t *domain.Task) {
	s.tasks = append(s.tasks, t)
	s.index[t.ID] = t
}

func (s *TaskService) remove(id string) {
	for i, t := range s.tasks {
		if t.ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			break
		}
	}
	delete(s.index, id)
}

func (s *TaskService) saveLocked() error {
	if err := s.storage.SaveTasks(s.tasks); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	return nil
}

func (s *TaskService) reject(op, id, format string, args ...interface{}) bool {
	s.logger.Printf("TaskService: %s rejected for %s: %s", op, id, fmt.Sprintf(format, args...))
	return false
}

// Queries

func (s *TaskService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tasks)
}

// GetAll returns every task ordered by deadline, tasks without a deadline last.
func (s *TaskService) GetAll() []*domain.Task {
	return s.List(domain.TaskFilter{})
}

func (s *TaskService) GetPending() []*domain.Task {
	pending := false
	return s.List(domain.TaskFilter{Completed: &pending})
}

// GetCompleted returns completed tasks, most recently completed first.
func (s *TaskService) GetCompleted() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	completed := true
	result := s.filterLocked(domain.TaskFilter{Completed: &completed})
	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i].CompletedAt, result[j].CompletedAt
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.After(*b)
	})
	return result
}

// List returns the tasks matching filter ordered by deadline.
func (s *TaskService) List(filter domain.TaskFilter) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := s.filterLocked(filter)
	sortByDeadline(result)
	return result
}

func (s *TaskService) GetByID(id string) (*domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

func (s *TaskService) filterLocked(filter domain.TaskFilter) []*domain.Task {
	result := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if filter.Match(t) {
			result = append(result, t.Clone())
		}
	}
	return result
}

func sortByDeadline(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i].Deadline, tasks[j].Deadline
		if a == nil || b == nil {
			return a != nil && b == nil
		}
		return a.Before(*b)
	})
}

// Mutations

// Add stores a copy of task, generating an id when it has none, and returns
// the stored copy.
func (s *TaskService) Add(task *domain.Task) (*domain.Task, error) {
	added, err := s.AddBatch([]*domain.Task{task})
	if err != nil {
		return nil, err
	}
	if len(added) == 0 {
		return nil, fmt.Errorf("no task to add")
	}
	return added[0], nil
}

// AddBatch stores copies of tasks with a single write. Relationship fields on
// the incoming tasks are requests, not facts: parents and dependencies are
// linked through the same checks SetParent and AddDependency apply, and
// links that fail them are dropped. Incoming child lists are ignored; children
// join a parent by naming it.
func (s *TaskService) AddBatch(tasks []*domain.Task) ([]*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pending := make([]*domain.Task, 0, len(tasks))
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		c := t.Clone()
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if _, exists := s.index[c.ID]; exists || seen[c.ID] {
			return nil, fmt.Errorf("task with ID %s: %w", c.ID, domain.ErrTaskExists)
		}
		seen[c.ID] = true
		s.normalizeNew(c, now)
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return make([]*domain.Task, 0), nil
	}

	type links struct {
		parent string
		deps   []string
	}
	requested := make([]links, len(pending))
	for i, c := range pending {
		requested[i] = links{parent: c.ParentID, deps: c.DependencyIDs}
		c.ParentID = ""
		c.IsRoot = true
		c.Order = 0
		c.ChildIDs = make([]string, 0)
		c.DependencyIDs = make([]string, 0)
		s.insert(c)
	}

	for i, c := range pending {
		if p := requested[i].parent; p != "" {
			if reason := s.attachBlocker(c.ID, p); reason != "" {
				s.reject("add parent link", c.ID, "%s", reason)
			} else {
				s.attach(c, s.index[p])
			}
		}
		for _, dep := range requested[i].deps {
			if reason := s.dependencyBlocker(c.ID, dep); reason != "" {
				s.reject("add dependency link", c.ID, "%s", reason)
				continue
			}
			if !c.HasDependency(dep) {
				c.DependencyIDs = append(c.DependencyIDs, dep)
			}
		}
	}

	if err := s.saveLocked(); err != nil {
		return nil, err
	}

	out := make([]*domain.Task, 0, len(pending))
	for _, c := range pending {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *TaskService) normalizeNew(t *domain.Task, now time.Time) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if level, ok := domain.ParseImportance(string(t.Importance)); ok {
		t.Importance = level
	} else {
		t.Importance = domain.ImportanceMedium
	}
	if t.CustomColor != "" {
		t.CustomColor, _ = domain.NormalizeColor(t.CustomColor)
	}
	if !t.Completed {
		t.CompletedAt = nil
	} else if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
}

// Update replaces the content fields of the stored task with the same id.
// Relationship and completion state are left alone.
func (s *TaskService) Update(task *domain.Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.index[task.ID]
	if !ok {
		return s.reject("update", task.ID, "unknown task"), nil
	}
	level, ok := domain.ParseImportance(string(task.Importance))
	if !ok {
		return s.reject("update", task.ID, "invalid importance %q", task.Importance), nil
	}
	color := ""
	if task.CustomColor != "" {
		if color, ok = domain.NormalizeColor(task.CustomColor); !ok {
			return s.reject("update", task.ID, "invalid color %q", task.CustomColor), nil
		}
	}

	existing.Name = task.Name
	existing.Detail = task.Detail
	existing.OriginalText = task.OriginalText
	existing.Deadline = nil
	if task.Deadline != nil {
		d := *task.Deadline
		existing.Deadline = &d
	}
	existing.Importance = level
	existing.CustomColor = color

	return true, s.saveLocked()
}

// MarkCompleted stamps CompletedAt when a task becomes completed and clears
// it when the task is reopened.
func (s *TaskService) MarkCompleted(id string, completed bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[id]
	if !ok {
		return s.reject("mark completed", id, "unknown task"), nil
	}

	if completed && !task.Completed {
		now := s.now()
		task.CompletedAt = &now
	}
	if !completed {
		task.CompletedAt = nil
	}
	task.Completed = completed

	return true, s.saveLocked()
}

// SetImportance also drops any custom color so the importance color shows.
func (s *TaskService) SetImportance(id, level string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	importance, ok := domain.ParseImportance(level)
	if !ok {
		return s.reject("set importance", id, "invalid importance %q", level), nil
	}
	task, ok := s.index[id]
	if !ok {
		return s.reject("set importance", id, "unknown task"), nil
	}

	task.Importance = importance
	task.CustomColor = ""

	return true, s.saveLocked()
}

// SetCustomColor overrides the display color without touching importance.
// An empty color clears the override.
func (s *TaskService) SetCustomColor(id, colorHex string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[id]
	if !ok {
		return s.reject("set color", id, "unknown task"), nil
	}
	color := ""
	if colorHex != "" {
		if color, ok = domain.NormalizeColor(colorHex); !ok {
			return s.reject("set color", id, "invalid color %q", colorHex), nil
		}
	}

	task.CustomColor = color

	return true, s.saveLocked()
}

func (s *TaskService) ResetColor(id string) (bool, error) {
	return s.SetCustomColor(id, "")
}

// Delete removes a task that has no children and no dependents.
func (s *TaskService) Delete(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deleteLocked(id) {
		return false, nil
	}
	return true, s.saveLocked()
}

// DeleteAllCompleted deletes the completed tasks that are safe to delete when
// the call starts and returns how many were removed. Unsafe ones are skipped.
func (s *TaskService) DeleteAllCompleted() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var candidates []string
	for _, t := range s.tasks {
		if t.Completed && s.deleteBlocker(t.ID) == "" {
			candidates = append(candidates, t.ID)
		}
	}

	count := 0
	for _, id := range candidates {
		if s.deleteLocked(id) {
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return count, s.saveLocked()
}

func (s *TaskService) deleteLocked(id string) bool {
	task, ok := s.index[id]
	if !ok {
		return false
	}
	if reason := s.deleteBlocker(id); reason != "" {
		return s.reject("delete", id, "%s", reason)
	}

	if task.ParentID != "" {
		if parent, ok := s.index[task.ParentID]; ok {
			s.removeChild(parent, id)
		}
	}
	for _, t := range s.tasks {
		t.DependencyIDs = without(t.DependencyIDs, id)
	}
	s.remove(id)
	return true
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
