package domain

// TaskContext is a task together with its neighbours in both graphs.
type TaskContext struct {
	Task         *Task   `json:"task"`
	Parent       *Task   `json:"parent,omitempty"`
	Children     []*Task `json:"children"`
	Dependencies []*Task `json:"dependencies"`
	Dependents   []*Task `json:"dependents"`
	Blocked      bool    `json:"blocked"`
	CanDelete    bool    `json:"canDelete"`
}

type SearchOptions struct {
	PendingOnly bool
	Limit       int
	Offset      int
}

type SearchResult struct {
	Task      *Task   `json:"task"`
	Score     float64 `json:"score"`
	MatchType string  `json:"matchType"`
	Snippet   string  `json:"snippet"`
}

type NextTaskCriteria struct {
	Exclude []string `json:"exclude,omitempty"`
}
