package model

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "inProgress"
	StatusDone       TaskStatus = "done"
)

// ParseTaskStatus rejects anything outside the three board columns.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case StatusTodo, StatusInProgress, StatusDone:
		return st, nil
	default:
		return "", invalid("status", "must be todo, inProgress or done")
	}
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     string     `json:"dueDate,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      TaskStatus `json:"status"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// Validate fills defaults for absent optional fields and reports the first
// malformed one. Completed must agree with Status.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return invalid("title", "is required")
	}
	if t.DueDate != "" && !ValidDate(t.DueDate) {
		return invalid("dueDate", "must be YYYY-MM-DD")
	}
	switch t.Priority {
	case "":
		t.Priority = PriorityMedium
	case PriorityLow, PriorityMedium, PriorityHigh:
	default:
		return invalid("priority", "must be low, medium or high")
	}
	if t.Status == "" {
		t.Status = StatusTodo
		if t.Completed {
			t.Status = StatusDone
		}
	}
	if _, err := ParseTaskStatus(string(t.Status)); err != nil {
		return err
	}
	if t.Completed != (t.Status == StatusDone) {
		return invalid("completed", "disagrees with status")
	}
	return nil
}

// Overdue reports whether the task is unfinished and due before today.
func (t Task) Overdue(today string) bool {
	return !t.Completed && t.DueDate != "" && t.DueDate < today
}
