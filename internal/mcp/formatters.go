package mcp

import (
	"fmt"
	"strings"
	"time"

	"github.com/rcliao/ddltrack/internal/domain"
)

// FormatTasksAsMarkdown renders tasks as a markdown checklist, pending first.
func FormatTasksAsMarkdown(tasks []*domain.Task, now time.Time) string {
	if len(tasks) == 0 {
		return "📋 **No tasks found**\n\nCreate a new task with `ddl.task.create`"
	}

	var pending, completed []*domain.Task
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			pending = append(pending, t)
		}
	}

	var sb strings.Builder
	sb.WriteString("# 📋 Deadlines\n\n")

	groups := []struct {
		header string
		tasks  []*domain.Task
	}{
		{"⏳ Pending", pending},
		{"✅ Completed", completed},
	}
	for _, g := range groups {
		if len(g.tasks) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("## %s\n\n", g.header))
		for _, t := range g.tasks {
			sb.WriteString(formatTask(t, now))
			sb.WriteString("\n")
		}
	}

	return strings.TrimSpace(sb.String())
}

func formatTask(task *domain.Task, now time.Time) string {
	var sb strings.Builder

	checkbox := "[ ]"
	if task.Completed {
		checkbox = "[x]"
	}

	sb.WriteString(fmt.Sprintf("### %s %s **%s**", checkbox, importanceMarker(task.Importance), task.Name))
	if len(task.ID) > 8 {
		sb.WriteString(fmt.Sprintf(" `[%s]`", task.ID[:8]))
	}
	sb.WriteString("\n")

	if task.Detail != "" {
		sb.WriteString(fmt.Sprintf("   %s\n", task.Detail))
	}

	if task.Deadline != nil {
		sb.WriteString("   ⏰ " + describeDeadline(*task.Deadline, now, task.Completed) + "\n")
	}

	if len(task.ChildIDs) > 0 {
		sb.WriteString(fmt.Sprintf("   🧩 %d subtasks\n", len(task.ChildIDs)))
	}
	if len(task.DependencyIDs) > 0 {
		sb.WriteString(fmt.Sprintf("   🔗 depends on %d tasks\n", len(task.DependencyIDs)))
	}

	return sb.String()
}

func importanceMarker(level domain.Importance) string {
	switch level {
	case domain.ImportanceHigh:
		return "🔴"
	case domain.ImportanceLow:
		return "🟢"
	default:
		return "🟡"
	}
}

func describeDeadline(deadline, now time.Time, completed bool) string {
	due := deadline.Format("Jan 2, 2006 15:04")
	if completed {
		return "Due " + due
	}
	if deadline.Before(now) {
		return fmt.Sprintf("**OVERDUE** (was due %s)", due)
	}

	days := int(deadline.Sub(now).Hours() / 24)
	switch days {
	case 0:
		return fmt.Sprintf("Due **today** (%s)", deadline.Format("15:04"))
	case 1:
		return fmt.Sprintf("Due **tomorrow** (%s)", deadline.Format("15:04"))
	default:
		return fmt.Sprintf("Due %s (%d days)", due, days)
	}
}
