package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

var ErrTaskExists = errors.New("task already exists")

// ParseImportance accepts the canonical levels in any case as well as the
// labels used by the desktop client.
func ParseImportance(s string) (Importance, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "高":
		return ImportanceHigh, true
	case "medium", "中":
		return ImportanceMedium, true
	case "low", "低":
		return ImportanceLow, true
	}
	return "", false
}

func (i Importance) Valid() bool {
	switch i {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
		return true
	}
	return false
}

type Task struct {
	ID            string     `json:"id" yaml:"id"`
	Name          string     `json:"name" yaml:"name"`
	Detail        string     `json:"detail" yaml:"detail"`
	OriginalText  string     `json:"originalText" yaml:"originalText"`
	Deadline      *time.Time `json:"deadline,omitempty" yaml:"deadline,omitempty"`
	Importance    Importance `json:"importance" yaml:"importance"`
	CustomColor   string     `json:"customColor,omitempty" yaml:"customColor,omitempty"`
	Completed     bool       `json:"completed" yaml:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty" yaml:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"createdAt"`
	ParentID      string     `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	ChildIDs      []string   `json:"childIds" yaml:"childIds"`
	DependencyIDs []string   `json:"dependencyIds" yaml:"dependencyIds"`
	IsRoot        bool       `json:"isRoot" yaml:"isRoot"`
	Order         int        `json:"order" yaml:"order"`
}

func NewTask(name, detail string) *Task {
	return &Task{
		ID:            uuid.New().String(),
		Name:          name,
		Detail:        detail,
		Importance:    ImportanceMedium,
		CreatedAt:     time.Now(),
		ChildIDs:      make([]string, 0),
		DependencyIDs: make([]string, 0),
		IsRoot:        true,
	}
}

// Clone returns a deep copy. Slices are never nil on the copy.
func (t *Task) Clone() *Task {
	c := *t
	c.ChildIDs = append(make([]string, 0, len(t.ChildIDs)), t.ChildIDs...)
	c.DependencyIDs = append(make([]string, 0, len(t.DependencyIDs)), t.DependencyIDs...)
	if t.Deadline != nil {
		d := *t.Deadline
		c.Deadline = &d
	}
	if t.CompletedAt != nil {
		d := *t.CompletedAt
		c.CompletedAt = &d
	}
	return &c
}

func (t *Task) HasDependency(id string) bool {
	for _, dep := range t.DependencyIDs {
		if dep == id {
			return true
		}
	}
	return false
}

func (t *Task) HasChild(id string) bool {
	for _, child := range t.ChildIDs {
		if child == id {
			return true
		}
	}
	return false
}

var importanceColors = map[Importance]string{
	ImportanceHigh:   "#FF3B30",
	ImportanceMedium: "#FFCC00",
	ImportanceLow:    "#4CD964",
}

const fallbackColor = "#3498DB"

// DisplayColor resolves the color a client should draw the task with. A valid
// custom color always wins over the importance color.
func (t *Task) DisplayColor() string {
	if c, ok := NormalizeColor(t.CustomColor); ok {
		return c
	}
	if c, ok := importanceColors[t.Importance]; ok {
		return c
	}
	return fallbackColor
}

// CompletedColor is DisplayColor at 50% opacity, as #AARRGGBB.
func (t *Task) CompletedColor() string {
	return "#80" + strings.TrimPrefix(t.DisplayColor(), "#")
}

// NormalizeColor validates a #RRGGBB string and returns it upper-cased.
func NormalizeColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return "", false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return "", false
		}
	}
	return strings.ToUpper(s), true
}

// ImportRecord is the shape handed over by the analysis collaborator.
type ImportRecord struct {
	ID           string `json:"id,omitempty" yaml:"id,omitempty"`
	Name         string `json:"name" yaml:"name"`
	Detail       string `json:"detail" yaml:"detail"`
	OriginalText string `json:"originalText" yaml:"originalText"`
	Deadline     string `json:"deadline" yaml:"deadline"`
	Importance   string `json:"importance" yaml:"importance"`
}

var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006/01/02 15:04",
	"2006/01/02",
}

// ParseDeadline parses the deadline strings produced by the analysis step.
// Layouts without a zone are read in time.Local.
func ParseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty deadline")
	}
	for _, layout := range deadlineLayouts {
		if d, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline %q", s)
}

// ToTask builds a task from the record. An unparsable deadline means no
// deadline and an unknown importance falls back to medium.
func (r ImportRecord) ToTask(now time.Time) *Task {
	task := NewTask(r.Name, r.Detail)
	if r.ID != "" {
		task.ID = r.ID
	}
	task.OriginalText = r.OriginalText
	task.CreatedAt = now
	if d, err := ParseDeadline(r.Deadline); err == nil {
		task.Deadline = &d
	}
	if level, ok := ParseImportance(r.Importance); ok {
		task.Importance = level
	}
	return task
}

type TaskFilter struct {
	Completed *bool
	RootsOnly bool
	ParentID  *string
}

func (f TaskFilter) Match(t *Task) bool {
	if f.Completed != nil && t.Completed != *f.Completed {
		return false
	}
	if f.RootsOnly && !t.IsRoot {
		return false
	}
	if f.ParentID != nil && t.ParentID != *f.ParentID {
		return false
	}
	return true
}
