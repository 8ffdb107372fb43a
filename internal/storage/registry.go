package storage

import (
	"fmt"
	"sort"

	"github.com/rcliao/ddltrack/internal/domain"
)

const KindMemory = "memory"

// Backend is what the task service persists through.
type Backend interface {
	LoadTasks() ([]*domain.Task, error)
	SaveTasks(tasks []*domain.Task) error
}

type Opener func(path string) (Backend, error)

var backends = map[string]Opener{
	FormatJSON: func(path string) (Backend, error) {
		return NewFileStorage(path, FormatJSON)
	},
	FormatYAML: func(path string) (Backend, error) {
		return NewFileStorage(path, FormatYAML)
	},
	KindMemory: func(string) (Backend, error) {
		return NewMemoryStorage(), nil
	},
}

// Open resolves a backend by kind. The set of kinds is fixed at startup.
func Open(kind, path string) (Backend, error) {
	open, ok := backends[kind]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend %q (available: %v)", kind, Kinds())
	}
	return open(path)
}

func Kinds() []string {
	kinds := make([]string, 0, len(backends))
	for k := range backends {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}
