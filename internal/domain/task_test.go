package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task := NewTask("Report", "Write the quarterly report")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Report", task.Name)
	assert.Equal(t, "Write the quarterly report", task.Detail)
	assert.Equal(t, ImportanceMedium, task.Importance)
	assert.NotZero(t, task.CreatedAt)
	assert.False(t, task.Completed)
	assert.Nil(t, task.CompletedAt)
	assert.True(t, task.IsRoot)
	assert.Empty(t, task.ParentID)
	assert.NotNil(t, task.ChildIDs)
	assert.NotNil(t, task.DependencyIDs)

	other := NewTask("Report", "")
	assert.NotEqual(t, task.ID, other.ID)
}

func TestParseImportance(t *testing.T) {
	cases := map[string]Importance{
		"high":   ImportanceHigh,
		"High":   ImportanceHigh,
		" LOW ":  ImportanceLow,
		"medium": ImportanceMedium,
		"高":      ImportanceHigh,
		"中":      ImportanceMedium,
		"低":      ImportanceLow,
	}
	for in, want := range cases {
		got, ok := ParseImportance(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseImportance("urgent")
	assert.False(t, ok)
	assert.False(t, Importance("High").Valid())
	assert.True(t, ImportanceLow.Valid())
}

func TestDisplayColor(t *testing.T) {
	task := NewTask("a", "")
	assert.Equal(t, "#FFCC00", task.DisplayColor())

	task.Importance = ImportanceHigh
	assert.Equal(t, "#FF3B30", task.DisplayColor())

	task.CustomColor = "#00ff00"
	assert.Equal(t, "#00FF00", task.DisplayColor())
	assert.Equal(t, "#8000FF00", task.CompletedColor())

	task.CustomColor = "green"
	assert.Equal(t, "#FF3B30", task.DisplayColor())

	task.Importance = "unknown"
	task.CustomColor = ""
	assert.Equal(t, "#3498DB", task.DisplayColor())
}

func TestNormalizeColor(t *testing.T) {
	c, ok := NormalizeColor("#a1b2c3")
	assert.True(t, ok)
	assert.Equal(t, "#A1B2C3", c)

	for _, bad := range []string{"", "a1b2c3", "#a1b2c", "#a1b2c3d", "#GGGGGG"} {
		_, ok := NormalizeColor(bad)
		assert.False(t, ok, bad)
	}
}

func TestClone(t *testing.T) {
	task := NewTask("a", "")
	d := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	task.Deadline = &d
	task.ChildIDs = append(task.ChildIDs, "c1")
	task.DependencyIDs = append(task.DependencyIDs, "d1")

	clone := task.Clone()
	clone.ChildIDs[0] = "changed"
	clone.DependencyIDs = append(clone.DependencyIDs, "d2")
	*clone.Deadline = d.Add(time.Hour)

	assert.Equal(t, []string{"c1"}, task.ChildIDs)
	assert.Equal(t, []string{"d1"}, task.DependencyIDs)
	assert.Equal(t, d, *task.Deadline)
}

func TestImportRecord_ToTask(t *testing.T) {
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.Local)

	rec := ImportRecord{
		Name:         "Essay",
		Detail:       "2000 words",
		OriginalText: "Submit the essay by March 3rd",
		Deadline:     "2026-03-03 23:59",
		Importance:   "高",
	}
	task := rec.ToTask(now)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "Essay", task.Name)
	assert.Equal(t, "Submit the essay by March 3rd", task.OriginalText)
	assert.Equal(t, ImportanceHigh, task.Importance)
	assert.Equal(t, now, task.CreatedAt)
	require.NotNil(t, task.Deadline)
	assert.Equal(t, time.Date(2026, 3, 3, 23, 59, 0, 0, time.Local), *task.Deadline)

	rec = ImportRecord{ID: "fixed", Name: "x", Deadline: "next friday", Importance: "??"}
	task = rec.ToTask(now)
	assert.Equal(t, "fixed", task.ID)
	assert.Nil(t, task.Deadline)
	assert.Equal(t, ImportanceMedium, task.Importance)
}

func TestTaskFilter_Match(t *testing.T) {
	done := true
	parent := "p"

	task := NewTask("a", "")
	assert.True(t, TaskFilter{}.Match(task))
	assert.False(t, TaskFilter{Completed: &done}.Match(task))
	assert.True(t, TaskFilter{RootsOnly: true}.Match(task))

	task.ParentID = parent
	task.IsRoot = false
	assert.False(t, TaskFilter{RootsOnly: true}.Match(task))
	assert.True(t, TaskFilter{ParentID: &parent}.Match(task))
}
