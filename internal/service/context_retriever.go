package service

import (
	"sort"
	"time"

	"github.com/rcliao/ddltrack/internal/domain"
)

// ContextRetriever assembles read views that span several tasks.
type ContextRetriever struct {
	tasks *TaskService
}

func NewContextRetriever(tasks *TaskService) *ContextRetriever {
	return &ContextRetriever{
		tasks: tasks,
	}
}

func (cr *ContextRetriever) GetTaskContext(taskID string) (*domain.TaskContext, bool) {
	task, ok := cr.tasks.GetByID(taskID)
	if !ok {
		return nil, false
	}

	ctx := &domain.TaskContext{
		Task:         task,
		Children:     cr.tasks.GetChildren(taskID),
		Dependencies: cr.tasks.GetDependencies(taskID),
		Dependents:   cr.tasks.GetDependents(taskID),
		CanDelete:    cr.tasks.CanDeleteSafely(taskID),
	}
	if parent, ok := cr.tasks.GetParent(taskID); ok {
		ctx.Parent = parent
	}
	ctx.Blocked = hasOpenDependency(ctx.Dependencies)
	return ctx, true
}

// GetNextTask picks the pending task to work on next. Unblocked tasks win over
// blocked ones, then importance and deadline proximity decide.
func (cr *ContextRetriever) GetNextTask(criteria domain.NextTaskCriteria) (*domain.Task, bool) {
	exclude := make(map[string]bool, len(criteria.Exclude))
	for _, id := range criteria.Exclude {
		exclude[id] = true
	}

	now := cr.tasks.now()
	var scored []scoredTask
	for _, t := range cr.tasks.GetPending() {
		if exclude[t.ID] {
			continue
		}
		blocked := hasOpenDependency(cr.tasks.GetDependencies(t.ID))
		scored = append(scored, scoredTask{Task: t, Score: scoreCandidate(t, blocked, now)})
	}
	if len(scored) == 0 {
		return nil, false
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored[0].Task, true
}

type scoredTask struct {
	Task  *domain.Task
	Score float64
}

func scoreCandidate(t *domain.Task, blocked bool, now time.Time) float64 {
	score := 10.0
	if blocked {
		score = 2.0
	}

	switch t.Importance {
	case domain.ImportanceHigh:
		score += 3.0
	case domain.ImportanceMedium:
		score += 1.0
	}

	if t.Deadline != nil {
		days := int(t.Deadline.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		score += 5.0 / float64(days+1)
	}
	return score
}

func hasOpenDependency(deps []*domain.Task) bool {
	for _, d := range deps {
		if !d.Completed {
			return true
		}
	}
	return false
}
