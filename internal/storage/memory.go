package storage

import (
	"sync"

	"github.com/rcliao/ddltrack/internal/domain"
)

// MemoryStorage holds the last saved snapshot in process. Tasks are copied on
// the way in and out so callers never share state with the snapshot.
type MemoryStorage struct {
	mu    sync.RWMutex
	tasks []*domain.Task
	saves int
}

func NewMemoryStorage(seed ...*domain.Task) *MemoryStorage {
	return &MemoryStorage{
		tasks: cloneTasks(seed),
	}
}

func (ms *MemoryStorage) LoadTasks() ([]*domain.Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return cloneTasks(ms.tasks), nil
}

func (ms *MemoryStorage) SaveTasks(tasks []*domain.Task) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.tasks = cloneTasks(tasks)
	ms.saves++
	return nil
}

// Saves reports how many times SaveTasks has been called.
func (ms *MemoryStorage) Saves() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	return ms.saves
}

func cloneTasks(tasks []*domain.Task) []*domain.Task {
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.Clone())
	}
	return out
}
