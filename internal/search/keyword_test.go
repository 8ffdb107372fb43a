package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/ddltrack/internal/domain"
)

type staticSource []*domain.Task

func (s staticSource) List(filter domain.TaskFilter) []*domain.Task {
	out := make([]*domain.Task, 0, len(s))
	for _, t := range s {
		if filter.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

func at(day int) *time.Time {
	d := time.Date(2026, 3, day, 12, 0, 0, 0, time.UTC)
	return &d
}

func TestKeywordSearch_Search(t *testing.T) {
	essay := domain.NewTask("History essay", "Draft the introduction")
	essay.Deadline = at(10)
	lab := domain.NewTask("Chemistry lab", "Write up the essay section")
	lab.Deadline = at(5)
	notes := domain.NewTask("Notes", "")
	notes.OriginalText = "remember the essay outline"
	unrelated := domain.NewTask("Groceries", "milk")

	searcher := NewKeywordSearch(staticSource{essay, lab, notes, unrelated})

	results := searcher.Search("ESSAY", domain.SearchOptions{})
	require.Len(t, results, 3)
	assert.Equal(t, essay.ID, results[0].Task.ID)
	assert.Equal(t, 3.0, results[0].Score)
	assert.Equal(t, "name", results[0].MatchType)
	assert.Equal(t, "History **essay**", results[0].Snippet)

	assert.Equal(t, lab.ID, results[1].Task.ID)
	assert.Equal(t, "detail", results[1].MatchType)
	assert.Equal(t, notes.ID, results[2].Task.ID)
	assert.Equal(t, "originalText", results[2].MatchType)

	assert.Empty(t, searcher.Search("   ", domain.SearchOptions{}))
	assert.Empty(t, searcher.Search("physics", domain.SearchOptions{}))
}

func TestKeywordSearch_MultipleTermsAndTies(t *testing.T) {
	late := domain.NewTask("Read chapter", "")
	late.Deadline = at(20)
	early := domain.NewTask("Read notes", "")
	early.Deadline = at(2)
	undated := domain.NewTask("Read paper", "")
	both := domain.NewTask("Read chapter", "chapter summary")

	searcher := NewKeywordSearch(staticSource{late, undated, early, both})

	results := searcher.Search("read chapter", domain.SearchOptions{})
	require.Len(t, results, 4)
	assert.Equal(t, both.ID, results[0].Task.ID)
	assert.Equal(t, 8.0, results[0].Score)
	assert.Equal(t, late.ID, results[1].Task.ID)
	assert.Equal(t, 6.0, results[1].Score)

	// Equal scores fall back to the nearest deadline, undated last
	assert.Equal(t, early.ID, results[2].Task.ID)
	assert.Equal(t, undated.ID, results[3].Task.ID)
}

func TestKeywordSearch_PendingOnlyAndPagination(t *testing.T) {
	var tasks staticSource
	for i := 0; i < 5; i++ {
		task := domain.NewTask("Quiz "+string(rune('A'+i)), "")
		task.Deadline = at(i + 1)
		tasks = append(tasks, task)
	}
	tasks[0].Completed = true

	searcher := NewKeywordSearch(tasks)

	assert.Len(t, searcher.Search("quiz", domain.SearchOptions{}), 5)
	pending := searcher.Search("quiz", domain.SearchOptions{PendingOnly: true})
	require.Len(t, pending, 4)
	assert.Equal(t, tasks[1].ID, pending[0].Task.ID)

	page := searcher.Search("quiz", domain.SearchOptions{Limit: 2, Offset: 1})
	require.Len(t, page, 2)
	assert.Equal(t, tasks[1].ID, page[0].Task.ID)
	assert.Equal(t, tasks[2].ID, page[1].Task.ID)

	assert.Empty(t, searcher.Search("quiz", domain.SearchOptions{Offset: 10}))
}

func TestExtractSnippet(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog near the riverbank at dawn"
	snippet := extractSnippet(text, "lazy")
	assert.Equal(t, "...uick brown fox jumps over the **lazy** dog near the riverbank at daw...", snippet)

	assert.Equal(t, "short", extractSnippet("short", "missing"))
}
