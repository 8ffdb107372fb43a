package search

import (
	"sort"
	"strings"

	"github.com/rcliao/ddltrack/internal/domain"
)

const snippetContext = 30

type KeywordSearch struct {
	tasks TaskSource
}

type TaskSource interface {
	List(filter domain.TaskFilter) []*domain.Task
}

func NewKeywordSearch(tasks TaskSource) *KeywordSearch {
	return &KeywordSearch{
		tasks: tasks,
	}
}

type field struct {
	name   string
	weight float64
	text   func(*domain.Task) string
}

var fields = []field{
	{"name", 3.0, func(t *domain.Task) string { return t.Name }},
	{"detail", 2.0, func(t *domain.Task) string { return t.Detail }},
	{"originalText", 1.0, func(t *domain.Task) string { return t.OriginalText }},
}

// Search matches every whitespace separated term of query against the text
// fields of each task, case-insensitively.
func (ks *KeywordSearch) Search(query string, opts domain.SearchOptions) []*domain.SearchResult {
	terms := strings.Fields(strings.ToLower(query))
	results := make([]*domain.SearchResult, 0)
	if len(terms) == 0 {
		return results
	}

	filter := domain.TaskFilter{}
	if opts.PendingOnly {
		pending := false
		filter.Completed = &pending
	}

	for _, task := range ks.tasks.List(filter) {
		if r := score(task, terms); r != nil {
			results = append(results, r)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		di, dj := results[i].Task.Deadline, results[j].Task.Deadline
		if di == nil || dj == nil {
			return di != nil
		}
		return di.Before(*dj)
	})

	return paginate(results, opts)
}

func score(task *domain.Task, terms []string) *domain.SearchResult {
	var total, best float64
	var bestField field
	var bestTerm string

	for _, f := range fields {
		text := strings.ToLower(f.text(task))
		if text == "" {
			continue
		}
		for _, term := range terms {
			if !strings.Contains(text, term) {
				continue
			}
			total += f.weight
			if f.weight > best {
				best = f.weight
				bestField = f
				bestTerm = term
			}
		}
	}
	if total == 0 {
		return nil
	}

	return &domain.SearchResult{
		Task:      task,
		Score:     total,
		MatchType: bestField.name,
		Snippet:   extractSnippet(bestField.text(task), bestTerm),
	}
}

func paginate(results []*domain.SearchResult, opts domain.SearchOptions) []*domain.SearchResult {
	if opts.Offset > 0 {
		if opts.Offset >= len(results) {
			return []*domain.SearchResult{}
		}
		results = results[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(results) {
		results = results[:opts.Limit]
	}
	return results
}

func extractSnippet(text, term string) string {
	index := strings.Index(strings.ToLower(text), term)
	if index == -1 || index+len(term) > len(text) {
		return text
	}

	start := index - snippetContext
	if start < 0 {
		start = 0
	}
	end := index + len(term) + snippetContext
	if end > len(text) {
		end = len(text)
	}
	start, end = runeBoundary(text, start), runeBoundary(text, end)

	snippet := text[start:index] + "**" + text[index:index+len(term)] + "**" + text[index+len(term):end]
	if start > 0 {
		snippet = "..." + snippet
	}
	if end < len(text) {
		snippet = snippet + "..."
	}
	return snippet
}

// runeBoundary moves i back to the start of the rune it falls in.
func runeBoundary(text string, i int) int {
	for i > 0 && i < len(text) && text[i]&0xC0 == 0x80 {
		i--
	}
	return i
}
