package chore

import (
	"time"

	"github.com/dukerupert/familyhub/internal/model"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

type ChoreWithStatus struct {
	model.Chore
	Status      Status     `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// UserStatus summarizes one profile's chores for one day.
type UserStatus struct {
	Date           string            `json:"date"`
	Completed      []string          `json:"completed"`
	TotalCompleted int               `json:"totalCompleted"`
	TotalChores    int               `json:"totalChores"`
	PointsEarned   int               `json:"pointsEarned"`
	Chores         []ChoreWithStatus `json:"chores"`
}

// ComputeUserStatus determines which chores userID has completed on date.
// Completions of chores that no longer exist are ignored.
func ComputeUserStatus(userID string, chores []model.Chore, completions []model.ChoreCompletion, date string) UserStatus {
	done := make(map[string]model.ChoreCompletion)
	for _, c := range completions {
		if c.UserID == userID && c.Date == date {
			done[c.ChoreID] = c
		}
	}

	us := UserStatus{
		Date:        date,
		Completed:   []string{},
		TotalChores: len(chores),
		Chores:      make([]ChoreWithStatus, 0, len(chores)),
	}
	for _, ch := range chores {
		cws := ChoreWithStatus{Chore: ch, Status: StatusPending}
		if c, ok := done[ch.ID]; ok {
			at := c.CompletedAt
			cws.Status = StatusCompleted
			cws.CompletedAt = &at
			us.Completed = append(us.Completed, ch.ID)
			us.PointsEarned += ch.Points
		}
		us.Chores = append(us.Chores, cws)
	}
	us.TotalCompleted = len(us.Completed)
	return us
}

// CompletedOn returns the completion of choreID by userID on date, if any.
func CompletedOn(completions []model.ChoreCompletion, userID, choreID, date string) (model.ChoreCompletion, bool) {
	for _, c := range completions {
		if c.UserID == userID && c.ChoreID == choreID && c.Date == date {
			return c, true
		}
	}
	return model.ChoreCompletion{}, false
}
