package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rcliao/ddltrack/internal/domain"
)

// CalendarService derives calendar views from pending tasks with a deadline.
// It holds no state of its own and always reads the current collection.
type CalendarService struct {
	tasks *TaskService
}

func NewCalendarService(tasks *TaskService) *CalendarService {
	return &CalendarService{
		tasks: tasks,
	}
}

func (cs *CalendarService) EventsForMonth(year int, month time.Month) []*domain.CalendarEvent {
	return cs.collect(func(d time.Time) bool {
		y, m, _ := d.Date()
		return y == year && m == month
	})
}

// EventsForWeek covers days calendar days starting at start, 7 when days <= 0.
func (cs *CalendarService) EventsForWeek(start time.Time, days int) []*domain.CalendarEvent {
	if days <= 0 {
		days = 7
	}
	from := startOfDay(start)
	to := from.AddDate(0, 0, days)
	return cs.collect(func(d time.Time) bool {
		return !d.Before(from) && d.Before(to)
	})
}

func (cs *CalendarService) EventsForDay(day time.Time) []*domain.CalendarEvent {
	return cs.EventsForWeek(day, 1)
}

// Upcoming lists events from the start of today through maxDays days ahead,
// 14 when maxDays <= 0.
func (cs *CalendarService) Upcoming(now time.Time, maxDays int) []*domain.CalendarEvent {
	if maxDays <= 0 {
		maxDays = 14
	}
	return cs.EventsForWeek(now, maxDays+1)
}

// DueReminders returns pending tasks whose deadline falls between now and the
// reminder window, soonest first.
func (cs *CalendarService) DueReminders(now time.Time, settings domain.ReminderSettings) []*domain.Task {
	result := make([]*domain.Task, 0)
	if !settings.Enabled {
		return result
	}
	until := now.Add(settings.Window())
	for _, t := range cs.tasks.GetPending() {
		if t.Deadline == nil {
			continue
		}
		if !t.Deadline.Before(now) && !t.Deadline.After(until) {
			result = append(result, t)
		}
	}
	return result
}

func (cs *CalendarService) collect(match func(time.Time) bool) []*domain.CalendarEvent {
	events := make([]*domain.CalendarEvent, 0)
	for _, t := range cs.tasks.GetPending() {
		if t.Deadline == nil || !match(t.Deadline.In(time.Local)) {
			continue
		}
		events = append(events, domain.NewCalendarEvent(t))
	}
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Start.Before(events[j].Start)
	})
	return events
}

func startOfDay(t time.Time) time.Time {
	t = t.In(time.Local)
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

const icsTimeLayout = "20060102T150405Z"

// BuildICS renders events as an iCalendar document.
func BuildICS(events []*domain.CalendarEvent, now time.Time) string {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//ddltrack//Deadline Export//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	for _, e := range events {
		lines = append(lines,
			"BEGIN:VEVENT",
			"UID:"+escapeICSText(fmt.Sprintf("task-%s@ddltrack", e.TaskID)),
			"DTSTAMP:"+now.UTC().Format(icsTimeLayout),
			"SUMMARY:"+escapeICSText(e.Name),
			"DTSTART:"+e.Start.UTC().Format(icsTimeLayout),
			"DTEND:"+e.End.UTC().Format(icsTimeLayout),
		)
		if e.Detail != "" {
			lines = append(lines, "DESCRIPTION:"+escapeICSText(e.Detail))
		}
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

func escapeICSText(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		";", `\;`,
		",", `\,`,
		"\r\n", `\n`,
		"\n", `\n`,
	)
	return replacer.Replace(s)
}
