package mcp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rcliao/ddltrack/internal/domain"
	"github.com/rcliao/ddltrack/internal/service"
)

// Relationship handlers
type ParentParams struct {
	TaskID   string `json:"taskId"`
	ParentID string `json:"parentId"`
}

func (s *MCPServer) handleSetParent(params json.RawMessage) (interface{}, error) {
	var p ParentParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.SetParent(p.TaskID, p.ParentID))
}

type DependencyParams struct {
	TaskID       string `json:"taskId"`
	DependencyID string `json:"dependencyId"`
}

func (s *MCPServer) handleDependencyAdd(params json.RawMessage) (interface{}, error) {
	var p DependencyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.AddDependency(p.TaskID, p.DependencyID))
}

func (s *MCPServer) handleDependencyRemove(params json.RawMessage) (interface{}, error) {
	var p DependencyParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.RemoveDependency(p.TaskID, p.DependencyID))
}

func (s *MCPServer) handleChildren(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.taskService.GetChildren(p.ID), nil
}

func (s *MCPServer) handleDependencies(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.taskService.GetDependencies(p.ID), nil
}

func (s *MCPServer) handleDependents(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.taskService.GetDependents(p.ID), nil
}

type ReorderParams struct {
	ParentID string   `json:"parentId"`
	ChildIDs []string `json:"childIds"`
}

func (s *MCPServer) handleReorder(params json.RawMessage) (interface{}, error) {
	var p ReorderParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return ack(s.taskService.ReorderChildren(p.ParentID, p.ChildIDs))
}

func (s *MCPServer) handleCanDelete(params json.RawMessage) (interface{}, error) {
	var p IDParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return map[string]bool{"canDelete": s.taskService.CanDeleteSafely(p.ID)}, nil
}

// Calendar handlers
type MonthParams struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
}

func (p MonthParams) resolve(now time.Time) (int, time.Month, error) {
	year, month := now.Year(), now.Month()
	if p.Year != 0 {
		year = p.Year
	}
	if p.Month != 0 {
		if p.Month < 1 || p.Month > 12 {
			return 0, 0, fmt.Errorf("%w: month %d out of range", ErrInvalidParams, p.Month)
		}
		month = time.Month(p.Month)
	}
	return year, month, nil
}

func (s *MCPServer) handleCalendarMonth(params json.RawMessage) (interface{}, error) {
	var p MonthParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	year, month, err := p.resolve(s.now())
	if err != nil {
		return nil, err
	}
	return s.calendarService.EventsForMonth(year, month), nil
}

type WeekParams struct {
	Start string `json:"start,omitempty"`
	Days  int    `json:"days,omitempty"`
}

func (s *MCPServer) handleCalendarWeek(params json.RawMessage) (interface{}, error) {
	var p WeekParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	start := s.now()
	if p.Start != "" {
		d, err := domain.ParseDeadline(p.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		start = d
	}
	return s.calendarService.EventsForWeek(start, p.Days), nil
}

type UpcomingParams struct {
	Days int `json:"days,omitempty"`
}

func (s *MCPServer) handleCalendarUpcoming(params json.RawMessage) (interface{}, error) {
	var p UpcomingParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	return s.calendarService.Upcoming(s.now(), p.Days), nil
}

// RemindersParams overrides the configured reminder window for one call.
type RemindersParams struct {
	DaysBefore  *int `json:"daysBefore,omitempty"`
	HoursBefore *int `json:"hoursBefore,omitempty"`
}

func (s *MCPServer) handleCalendarReminders(params json.RawMessage) (interface{}, error) {
	var p RemindersParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}

	settings := s.reminders
	if p.DaysBefore != nil {
		settings.DaysBefore = *p.DaysBefore
	}
	if p.HoursBefore != nil {
		settings.HoursBefore = *p.HoursBefore
	}
	return s.calendarService.DueReminders(s.now(), settings), nil
}

func (s *MCPServer) handleCalendarICS(params json.RawMessage) (interface{}, error) {
	var p MonthParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	now := s.now()
	year, month, err := p.resolve(now)
	if err != nil {
		return nil, err
	}
	return service.BuildICS(s.calendarService.EventsForMonth(year, month), now), nil
}
