package service

import (
	"fmt"
	"sort"

	"github.com/rcliao/ddltrack/internal/domain"
)

// SetParent moves taskID under parentID, or makes it a root when parentID is
// empty. Attaching under the task itself or one of its descendants is
// rejected.
func (s *TaskService) SetParent(taskID, parentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[taskID]
	if !ok {
		return s.reject("set parent", taskID, "unknown task"), nil
	}

	if parentID == "" {
		s.detach(task)
		return true, s.saveLocked()
	}

	if reason := s.attachBlocker(taskID, parentID); reason != "" {
		return s.reject("set parent", taskID, "%s", reason), nil
	}
	parent := s.index[parentID]
	if task.ParentID != parentID {
		s.detach(task)
	}
	s.attach(task, parent)

	return true, s.saveLocked()
}

// attachBlocker explains why taskID cannot be put under parentID, or returns
// the empty string.
func (s *TaskService) attachBlocker(taskID, parentID string) string {
	if _, ok := s.index[parentID]; !ok {
		return fmt.Sprintf("unknown parent %s", parentID)
	}
	if parentID == taskID {
		return "a task cannot be its own parent"
	}
	if s.isAncestor(taskID, parentID) {
		return fmt.Sprintf("parent %s is a descendant of the task", parentID)
	}
	return ""
}

// isAncestor walks up the parent chain from id looking for ancestorID.
func (s *TaskService) isAncestor(ancestorID, id string) bool {
	visited := make(map[string]bool)
	for id != "" && !visited[id] {
		if id == ancestorID {
			return true
		}
		visited[id] = true
		t, ok := s.index[id]
		if !ok {
			return false
		}
		id = t.ParentID
	}
	return false
}

func (s *TaskService) attach(task, parent *domain.Task) {
	task.ParentID = parent.ID
	task.IsRoot = false
	if !parent.HasChild(task.ID) {
		parent.ChildIDs = append(parent.ChildIDs, task.ID)
	}
	s.renumber(parent)
}

func (s *TaskService) detach(task *domain.Task) {
	if task.ParentID != "" {
		if parent, ok := s.index[task.ParentID]; ok {
			s.removeChild(parent, task.ID)
		}
	}
	task.ParentID = ""
	task.IsRoot = true
	task.Order = 0
}

func (s *TaskService) removeChild(parent *domain.Task, childID string) {
	parent.ChildIDs = without(parent.ChildIDs, childID)
	s.renumber(parent)
}

// renumber makes every child's Order match its position.
func (s *TaskService) renumber(parent *domain.Task) {
	for i, id := range parent.ChildIDs {
		if child, ok := s.index[id]; ok {
			child.Order = i
		}
	}
}

// AddDependency records that taskID depends on dependencyID. Adding an edge
// that would close a cycle is rejected; adding an existing edge succeeds
// without a write.
func (s *TaskService) AddDependency(taskID, dependencyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if reason := s.dependencyBlocker(taskID, dependencyID); reason != "" {
		return s.reject("add dependency", taskID, "%s", reason), nil
	}
	task := s.index[taskID]
	if task.HasDependency(dependencyID) {
		return true, nil
	}
	task.DependencyIDs = append(task.DependencyIDs, dependencyID)

	return true, s.saveLocked()
}

func (s *TaskService) dependencyBlocker(taskID, dependencyID string) string {
	if _, ok := s.index[taskID]; !ok {
		return "unknown task"
	}
	if _, ok := s.index[dependencyID]; !ok {
		return fmt.Sprintf("unknown dependency %s", dependencyID)
	}
	if s.reachesDependency(dependencyID, taskID) {
		return fmt.Sprintf("depending on %s would create a cycle", dependencyID)
	}
	return ""
}

// reachesDependency reports whether target is reachable from start along
// dependency edges. Iterative DFS, each task visited once.
func (s *TaskService) reachesDependency(start, target string) bool {
	visited := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		t, ok := s.index[id]
		if !ok {
			continue
		}
		for _, dep := range t.DependencyIDs {
			if !visited[dep] {
				stack = append(stack, dep)
			}
		}
	}
	return false
}

// RemoveDependency reports whether an edge was removed.
func (s *TaskService) RemoveDependency(taskID, dependencyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.index[taskID]
	if !ok {
		return s.reject("remove dependency", taskID, "unknown task"), nil
	}
	if !task.HasDependency(dependencyID) {
		return false, nil
	}
	task.DependencyIDs = without(task.DependencyIDs, dependencyID)

	return true, s.saveLocked()
}

func (s *TaskService) GetChildren(taskID string) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Task, 0)
	parent, ok := s.index[taskID]
	if !ok {
		return result
	}
	for _, id := range parent.ChildIDs {
		if child, ok := s.index[id]; ok {
			result = append(result, child.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Order < result[j].Order
	})
	return result
}

func (s *TaskService) GetDependencies(taskID string) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Task, 0)
	task, ok := s.index[taskID]
	if !ok {
		return result
	}
	for _, id := range task.DependencyIDs {
		if dep, ok := s.index[id]; ok {
			result = append(result, dep.Clone())
		}
	}
	return result
}

// GetDependents returns the tasks that list taskID as a dependency.
func (s *TaskService) GetDependents(taskID string) []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Task, 0)
	for _, t := range s.tasks {
		if t.HasDependency(taskID) {
			result = append(result, t.Clone())
		}
	}
	return result
}

func (s *TaskService) GetParent(taskID string) (*domain.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.index[taskID]
	if !ok || task.ParentID == "" {
		return nil, false
	}
	parent, ok := s.index[task.ParentID]
	if !ok {
		return nil, false
	}
	return parent.Clone(), true
}

// GetRoots returns tasks without a parent ordered by deadline.
func (s *TaskService) GetRoots() []*domain.Task {
	return s.List(domain.TaskFilter{RootsOnly: true})
}

// ReorderChildren replaces the child order of parentID. orderedChildIDs must
// be a permutation of the current children; anything else is rejected with
// no change.
func (s *TaskService) ReorderChildren(parentID string, orderedChildIDs []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parent, ok := s.index[parentID]
	if !ok {
		return s.reject("reorder children", parentID, "unknown task"), nil
	}
	if len(orderedChildIDs) != len(parent.ChildIDs) {
		return s.reject("reorder children", parentID, "expected %d children, got %d", len(parent.ChildIDs), len(orderedChildIDs)), nil
	}
	seen := make(map[string]bool, len(orderedChildIDs))
	for _, id := range orderedChildIDs {
		child, ok := s.index[id]
		if !ok {
			return s.reject("reorder children", parentID, "unknown child %s", id), nil
		}
		if child.ParentID != parentID {
			return s.reject("reorder children", parentID, "%s is not a child", id), nil
		}
		if seen[id] {
			return s.reject("reorder children", parentID, "duplicate child %s", id), nil
		}
		seen[id] = true
	}

	parent.ChildIDs = append(make([]string, 0, len(orderedChildIDs)), orderedChildIDs...)
	s.renumber(parent)

	return true, s.saveLocked()
}

// CanDeleteSafely reports whether deleting taskID would orphan a child or a
// dependent. Unknown tasks are trivially deletable.
func (s *TaskService) CanDeleteSafely(taskID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.deleteBlocker(taskID) == ""
}

func (s *TaskService) deleteBlocker(taskID string) string {
	task, ok := s.index[taskID]
	if !ok {
		return ""
	}
	if len(task.ChildIDs) > 0 {
		return fmt.Sprintf("task has %d children", len(task.ChildIDs))
	}
	for _, t := range s.tasks {
		if t.HasDependency(taskID) {
			return fmt.Sprintf("task %s depends on it", t.ID)
		}
	}
	return ""
}

// Verify lists every broken relationship invariant in the collection. An
// empty result means the graph is consistent.
func (s *TaskService) Verify() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.verifyLocked()
}

func (s *TaskService) verifyLocked() []string {
	var problems []string
	report := func(format string, args ...interface{}) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	for _, t := range s.tasks {
		if t.IsRoot != (t.ParentID == "") {
			report("%s: isRoot=%v but parentId=%q", t.ID, t.IsRoot, t.ParentID)
		}
		if t.ParentID != "" {
			parent, ok := s.index[t.ParentID]
			switch {
			case !ok:
				report("%s: parent %s does not exist", t.ID, t.ParentID)
			case !parent.HasChild(t.ID):
				report("%s: parent %s does not list it as a child", t.ID, t.ParentID)
			}
			if s.isAncestor(t.ID, t.ParentID) {
				report("%s: is its own ancestor", t.ID)
			}
		}

		seen := make(map[string]bool, len(t.ChildIDs))
		for i, id := range t.ChildIDs {
			if seen[id] {
				report("%s: child %s listed twice", t.ID, id)
			}
			seen[id] = true
			child, ok := s.index[id]
			switch {
			case !ok:
				report("%s: child %s does not exist", t.ID, id)
			case child.ParentID != t.ID:
				report("%s: child %s has parent %q", t.ID, id, child.ParentID)
			case child.Order != i:
				report("%s: child %s has order %d at position %d", t.ID, id, child.Order, i)
			}
		}

		for _, dep := range t.DependencyIDs {
			if _, ok := s.index[dep]; !ok {
				report("%s: dependency %s does not exist", t.ID, dep)
			}
		}
		for _, dep := range t.DependencyIDs {
			if s.reachesDependency(dep, t.ID) {
				report("%s: dependency cycle through %s", t.ID, dep)
				break
			}
		}
	}
	return problems
}
