package model

import (
	"strings"
	"time"
)

type Chore struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Icon      string     `json:"icon"`
	Points    int        `json:"points"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (c *Chore) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", "is required")
	}
	if c.Points < 0 {
		return invalid("points", "must not be negative")
	}
	return nil
}

// ChoreCompletion records one profile finishing one chore on one day.
type ChoreCompletion struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ChoreID     string    `json:"choreId"`
	Date        string    `json:"date"`
	CompletedAt time.Time `json:"completedAt"`
}

func (c *ChoreCompletion) Validate() error {
	if c.UserID == "" {
		return invalid("userId", "is required")
	}
	if c.ChoreID == "" {
		return invalid("choreId", "is required")
	}
	if !ValidDate(c.Date) {
		return invalid("date", "must be YYYY-MM-DD")
	}
	return nil
}

// CompletionID is the document id of the completion of choreID by userID on
// date, so at most one such document can exist.
func CompletionID(userID, choreID, date string) string {
	return userID + "_" + choreID + "_" + date
}
