package domain

import "time"

type CalendarEvent struct {
	TaskID    string    `json:"taskId"`
	Name      string    `json:"name"`
	Detail    string    `json:"detail,omitempty"`
	Date      time.Time `json:"date"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Color     string    `json:"color"`
	Completed bool      `json:"completed"`
}

// NewCalendarEvent places a task on its deadline day as a one hour slot.
// The task must have a deadline.
func NewCalendarEvent(task *Task) *CalendarEvent {
	start := *task.Deadline
	y, m, d := start.Date()
	color := task.DisplayColor()
	if task.Completed {
		color = task.CompletedColor()
	}
	return &CalendarEvent{
		TaskID:    task.ID,
		Name:      task.Name,
		Detail:    task.Detail,
		Date:      time.Date(y, m, d, 0, 0, 0, 0, start.Location()),
		Start:     start,
		End:       start.Add(time.Hour),
		Color:     color,
		Completed: task.Completed,
	}
}

type ReminderSettings struct {
	Enabled     bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	DaysBefore  int  `json:"daysBefore" yaml:"daysBefore" mapstructure:"daysBefore"`
	HoursBefore int  `json:"hoursBefore" yaml:"hoursBefore" mapstructure:"hoursBefore"`
}

func (r ReminderSettings) Window() time.Duration {
	return time.Duration(r.DaysBefore)*24*time.Hour + time.Duration(r.HoursBefore)*time.Hour
}
