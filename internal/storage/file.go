package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/rcliao/ddltrack/internal/domain"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FileStorage keeps the whole task collection in a single file. Every save
// rewrites the file through a temp file and a rename, under an advisory lock
// on <path>.lock shared with other processes.
type FileStorage struct {
	path   string
	format string
	lock   *flock.Flock
	mu     sync.Mutex
}

func NewFileStorage(path, format string) (*FileStorage, error) {
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unsupported storage format: %s", format)
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to initialize file storage: %w", err)
		}
	}

	return &FileStorage{
		path:   path,
		format: format,
		lock:   flock.New(path + ".lock"),
	}, nil
}

// SetLocking turns the cross-process lock on or off. Only a single process
// may write the file while it is off.
func (fs *FileStorage) SetLocking(enabled bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if enabled {
		fs.lock = flock.New(fs.path + ".lock")
	} else {
		fs.lock = nil
	}
}

func (fs *FileStorage) Path() string {
	return fs.path
}

func (fs *FileStorage) Format() string {
	return fs.format
}

// LoadTasks returns an empty collection when the file does not exist yet.
func (fs *FileStorage) LoadTasks() ([]*domain.Task, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return make([]*domain.Task, 0), nil
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make([]*domain.Task, 0), nil
	}

	tasks, err := decodeTasks(fs.format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", fs.path, err)
	}
	return tasks, nil
}

func (fs *FileStorage) SaveTasks(tasks []*domain.Task) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.lock != nil {
		if err := fs.lock.Lock(); err != nil {
			return fmt.Errorf("failed to lock %s: %w", fs.path, err)
		}
		defer fs.lock.Unlock()
	}

	tempPath := fs.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return err
	}

	if err := encodeTasks(fs.format, file, tasks); err != nil {
		file.Close()
		os.Remove(tempPath)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return err
	}

	return os.Rename(tempPath, fs.path)
}

func encodeTasks(format string, w io.Writer, tasks []*domain.Task) error {
	if tasks == nil {
		tasks = make([]*domain.Task, 0)
	}
	switch format {
	case FormatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(tasks); err != nil {
			return err
		}
		return encoder.Close()
	default:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(tasks)
	}
}

func decodeTasks(format string, data []byte) ([]*domain.Task, error) {
	var tasks []*domain.Task
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &tasks)
	default:
		err = json.Unmarshal(data, &tasks)
	}
	if err != nil {
		return nil, err
	}

	// Older files may carry null lists.
	out := make([]*domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil {
			continue
		}
		if t.ChildIDs == nil {
			t.ChildIDs = make([]string, 0)
		}
		if t.DependencyIDs == nil {
			t.DependencyIDs = make([]string, 0)
		}
		out = append(out, t)
	}
	return out, nil
}
