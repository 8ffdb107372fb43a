package mcp

type param struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// Tool exposes one HandleCommand method through tools/call.
type Tool struct {
	Name        string
	Method      string
	Description string
	Params      []param
}

func (t Tool) schema() map[string]interface{} {
	properties := make(map[string]interface{}, len(t.Params))
	required := make([]string, 0)
	for _, p := range t.Params {
		prop := map[string]interface{}{
			"type":        p.Type,
			"description": p.Description,
		}
		switch p.Type {
		case "array":
			prop["items"] = map[string]interface{}{"type": "string"}
		case "objects":
			prop["type"] = "array"
			prop["items"] = map[string]interface{}{"type": "object"}
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	if len(t.Params) == 0 {
		schema["additionalProperties"] = false
	}
	return schema
}

var (
	idParam     = param{"id", "string", "Task ID", true}
	formatParam = param{"format", "string", "Output format: json (default) or markdown", false}
)

var tools = []Tool{
	// Tasks
	{"ddl_task_list", "ddl.task.list", "List tasks ordered by deadline", []param{
		{"completed", "boolean", "Only completed (true) or pending (false) tasks", false},
		{"rootsOnly", "boolean", "Only tasks without a parent", false},
		{"parentId", "string", "Only children of this task", false},
		formatParam,
	}},
	{"ddl_task_pending", "ddl.task.pending", "List pending tasks ordered by deadline", []param{formatParam}},
	{"ddl_task_completed", "ddl.task.completed", "List completed tasks ordered by deadline", []param{formatParam}},
	{"ddl_task_get", "ddl.task.get", "Get a task by ID", []param{idParam}},
	{"ddl_task_context", "ddl.task.context", "Get a task with its parent, children, dependencies and dependents", []param{idParam}},
	{"ddl_task_next", "ddl.task.next", "Suggest the pending task to work on next", []param{
		{"exclude", "array", "Task IDs to skip", false},
	}},
	{"ddl_task_create", "ddl.task.create", "Create a task", []param{
		{"name", "string", "Task name", true},
		{"detail", "string", "Task detail", false},
		{"originalText", "string", "Text the task was extracted from", false},
		{"deadline", "string", "Deadline, e.g. 2026-03-01 18:00", false},
		{"importance", "string", "high, medium or low", false},
		{"customColor", "string", "Display color as #RRGGBB", false},
		{"parentId", "string", "Parent task ID", false},
		{"dependencyIds", "array", "IDs of tasks this task depends on", false},
	}},
	{"ddl_task_import", "ddl.task.import", "Import analysed task records in one write", []param{
		{"tasks", "objects", "Records with name, detail, originalText, deadline and importance", true},
	}},
	{"ddl_task_update", "ddl.task.update", "Update task content fields", []param{
		idParam,
		{"name", "string", "Task name", false},
		{"detail", "string", "Task detail", false},
		{"originalText", "string", "Original text", false},
		{"deadline", "string", "Deadline, empty to clear", false},
		{"importance", "string", "high, medium or low", false},
		{"customColor", "string", "#RRGGBB, empty to clear", false},
	}},
	{"ddl_task_complete", "ddl.task.complete", "Mark a task completed or pending", []param{
		idParam,
		{"completed", "boolean", "Completion state, defaults to true", false},
	}},
	{"ddl_task_importance", "ddl.task.importance", "Set task importance", []param{
		idParam,
		{"importance", "string", "high, medium or low", true},
	}},
	{"ddl_task_color", "ddl.task.color", "Set a custom display color", []param{
		idParam,
		{"color", "string", "#RRGGBB", true},
	}},
	{"ddl_task_color_reset", "ddl.task.color.reset", "Remove the custom display color", []param{idParam}},
	{"ddl_task_delete", "ddl.task.delete", "Delete a task without children or dependents", []param{idParam}},
	{"ddl_task_delete_completed", "ddl.task.delete_completed", "Delete every completed task that is safe to delete", nil},
	{"ddl_task_search", "ddl.task.search", "Keyword search over name, detail and original text", []param{
		{"query", "string", "Search terms", true},
		{"pendingOnly", "boolean", "Skip completed tasks", false},
		{"limit", "integer", "Maximum results, default 10", false},
		{"offset", "integer", "Results to skip", false},
	}},

	// Relationships
	{"ddl_relation_parent", "ddl.relation.parent", "Move a task under a parent, or make it a root with an empty parentId", []param{
		{"taskId", "string", "Task ID", true},
		{"parentId", "string", "Parent task ID", false},
	}},
	{"ddl_relation_dependency_add", "ddl.relation.dependency.add", "Make a task depend on another", []param{
		{"taskId", "string", "Task ID", true},
		{"dependencyId", "string", "Task it depends on", true},
	}},
	{"ddl_relation_dependency_remove", "ddl.relation.dependency.remove", "Remove a dependency", []param{
		{"taskId", "string", "Task ID", true},
		{"dependencyId", "string", "Task it depends on", true},
	}},
	{"ddl_relation_children", "ddl.relation.children", "List subtasks in order", []param{idParam}},
	{"ddl_relation_dependencies", "ddl.relation.dependencies", "List tasks a task depends on", []param{idParam}},
	{"ddl_relation_dependents", "ddl.relation.dependents", "List tasks depending on a task", []param{idParam}},
	{"ddl_relation_roots", "ddl.relation.roots", "List top level tasks", nil},
	{"ddl_relation_reorder", "ddl.relation.reorder", "Reorder the subtasks of a parent", []param{
		{"parentId", "string", "Parent task ID", true},
		{"childIds", "array", "All child IDs in the new order", true},
	}},
	{"ddl_relation_can_delete", "ddl.relation.can_delete", "Check whether a task can be deleted", []param{idParam}},
	{"ddl_verify", "ddl.verify", "Report relationship inconsistencies", nil},

	// Calendar
	{"ddl_calendar_month", "ddl.calendar.month", "Pending deadlines in a month", []param{
		{"year", "integer", "Year, defaults to now", false},
		{"month", "integer", "Month 1-12, defaults to now", false},
	}},
	{"ddl_calendar_week", "ddl.calendar.week", "Pending deadlines in a range of days", []param{
		{"start", "string", "First day, defaults to today", false},
		{"days", "integer", "Number of days, default 7", false},
	}},
	{"ddl_calendar_upcoming", "ddl.calendar.upcoming", "Pending deadlines from today on", []param{
		{"days", "integer", "Days ahead, default 14", false},
	}},
	{"ddl_calendar_reminders", "ddl.calendar.reminders", "Tasks due within the reminder window", []param{
		{"daysBefore", "integer", "Override configured days", false},
		{"hoursBefore", "integer", "Override configured hours", false},
	}},
	{"ddl_calendar_ics", "ddl.calendar.ics", "Export a month of deadlines as iCalendar", []param{
		{"year", "integer", "Year, defaults to now", false},
		{"month", "integer", "Month 1-12, defaults to now", false},
	}},
}

func toolByName(name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Tools returns the tool table in listing order.
func Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}
